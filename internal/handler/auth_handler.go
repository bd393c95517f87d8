package handler

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"taskmanager/internal/auth"
	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

type AuthHandler struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *log.Logger
}

func NewAuthHandler(users repository.UserRepository, tokens *auth.TokenService, logger *log.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Name     string `json:"name" binding:"max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse представляет ответ с токеном и данными пользователя
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Register регистрирует нового пользователя
// @Summary      Register a user
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "Registration data"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      409      {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	email := normalizeEmail(req.Email)

	existing, err := h.users.FindByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if existing != nil {
		respondError(c, h.logger, repository.ErrEmailTaken)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
	}
	// Уникальный индекс ловит гонку между двумя регистрациями
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login аутентифицирует пользователя
// @Summary      Log in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Credentials"
// @Success      200      {object}  AuthResponse
// @Failure      400      {object}  map[string]interface{}
// @Failure      401      {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me возвращает текущего пользователя
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Missing token"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *model.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(status, AuthResponse{Token: token, User: toUserResponse(user)})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
