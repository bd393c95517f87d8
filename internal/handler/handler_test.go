package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/handler"
	"taskmanager/internal/logging"
	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/query"
	"taskmanager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

const testSecret = "test-secret"

// Мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task model.NewTask, ownerID *string) (*model.Task, error) {
	args := m.Called(ctx, task, ownerID)
	created := args.Get(0)
	if created == nil {
		return nil, args.Error(1)
	}
	return created.(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, p query.Predicate) ([]model.Task, error) {
	args := m.Called(ctx, p)
	tasks := args.Get(0)
	if tasks == nil {
		return nil, args.Error(1)
	}
	return tasks.([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) GetOne(ctx context.Context, id string, p query.Predicate) (*model.Task, error) {
	args := m.Called(ctx, id, p)
	task := args.Get(0)
	if task == nil {
		return nil, args.Error(1)
	}
	return task.(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, id string, p query.Predicate, patch model.TaskPatch) (*model.Task, error) {
	args := m.Called(ctx, id, p, patch)
	task := args.Get(0)
	if task == nil {
		return nil, args.Error(1)
	}
	return task.(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id string, p query.Predicate) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

// Мок репозитория пользователей
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func newTokens() *auth.TokenService {
	return auth.NewTokenService(testSecret, time.Hour)
}

// setupRouter собирает маршруты так же, как сервер
func setupRouter(tasks repository.TaskRepository, users repository.UserRepository, tokens *auth.TokenService, bodyLimit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.BodyLimit(bodyLimit))

	logger := logging.Discard()
	taskHandler := handler.NewTaskHandler(tasks, logger)
	authHandler := handler.NewAuthHandler(users, tokens, logger)

	r.GET("/health", handler.Health)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.RequireAuth(tokens), authHandler.Me)

	api := r.Group("/api/tasks", middleware.OptionalAuth(tokens))
	api.GET("", taskHandler.List)
	api.POST("", taskHandler.Create)
	api.GET("/:id", taskHandler.GetByID)
	api.PUT("/:id", taskHandler.Update)
	api.DELETE("/:id", taskHandler.Delete)

	return r
}

func performRequest(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}
