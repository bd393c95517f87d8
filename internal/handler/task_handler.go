package handler

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/query"
	"taskmanager/internal/repository"
	"taskmanager/internal/validation"
)

type TaskHandler struct {
	tasks  repository.TaskRepository
	logger *log.Logger
}

func NewTaskHandler(tasks repository.TaskRepository, logger *log.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// CreateTaskRequest описывает тело запроса на создание задачи.
// Тело разбирается validation.ValidateCreate, тип нужен для документации.
type CreateTaskRequest struct {
	Title       string `json:"title" example:"Test Task"`
	Description string `json:"description" example:"Hello"`
	Status      string `json:"status" enums:"Pending,In Progress,Completed" example:"Pending"`
	DueDate     string `json:"dueDate" example:"2025-01-01T00:00:00.000Z"`
}

// UpdateTaskRequest описывает тело частичного обновления; нужно хотя бы одно поле
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enums:"Pending,In Progress,Completed"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// List возвращает задачи, видимые вызывающему
// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Param        status  query  string  false  "Pending, In Progress or Completed"
// @Param        search  query  string  false  "Case-insensitive match on title or description"
// @Success      200  {array}   model.Task
// @Security     BearerAuth
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	filter := validation.ParseFilter(c.Query("status"), c.Query("search"))

	p := query.Build(middleware.IdentityFrom(c), filter)
	tasks, err := h.tasks.List(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	c.JSON(http.StatusOK, tasks)
}

// GetByID возвращает одну задачу
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  model.Task
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	task, err := h.tasks.GetOne(c.Request.Context(), c.Param("id"), query.Scoped(middleware.IdentityFrom(c)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Create создает задачу; владельцем становится аутентифицированный вызывающий
// @Summary      Create a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body      CreateTaskRequest  true  "Task"
// @Success      201   {object}  model.Task
// @Failure      400   {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	newTask, err := validation.ValidateCreate(body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var ownerID *string
	if identity := middleware.IdentityFrom(c); identity != nil {
		id := identity.ID
		ownerID = &id
	}

	task, err := h.tasks.Create(c.Request.Context(), newTask, ownerID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// Update частично обновляет задачу
// @Summary      Update a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Task ID"
// @Param        task  body      UpdateTaskRequest  true  "Fields to change"
// @Success      200   {object}  model.Task
// @Failure      400   {object}  map[string]interface{}
// @Failure      404   {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	patch, err := validation.ValidateUpdate(body)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), c.Param("id"), query.Scoped(middleware.IdentityFrom(c)), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// Delete удаляет задачу
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), c.Param("id"), query.Scoped(middleware.IdentityFrom(c))); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}
