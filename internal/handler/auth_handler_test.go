package handler_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"taskmanager/internal/auth"
	"taskmanager/internal/handler"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupAuthTest() (http.Handler, *MockUserRepository, *auth.TokenService) {
	mockRepo := new(MockUserRepository)
	tokens := newTokens()
	return setupRouter(new(MockTaskRepository), mockRepo, tokens, 1<<20), mockRepo, tokens
}

func TestRegister_Success(t *testing.T) {
	// Arrange
	router, mockRepo, tokens := setupAuthTest()

	// Мокаем методы репозитория
	mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(nil, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*model.User).ID = "user-42"
		}).
		Return(nil)

	body := `{"name":"Test User","email":"Test@Example.com","password":"password123"}`

	// Act
	resp := performRequest(router, http.MethodPost, "/auth/register", body, "")

	// Assert
	require.Equal(t, http.StatusCreated, resp.Code)

	var response handler.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, handler.UserResponse{ID: "user-42", Name: "Test User", Email: "test@example.com"}, response.User)

	identity, err := tokens.Verify(response.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.ID)
	assert.Equal(t, "test@example.com", identity.Email)

	// Пароль хранится только в виде хеша
	created := mockRepo.Calls[1].Arguments.Get(1).(*model.User)
	assert.NotEqual(t, "password123", created.PasswordHash)
	assert.True(t, auth.CheckPassword(created.PasswordHash, "password123"))

	mockRepo.AssertExpectations(t)
}

func TestRegister_UserAlreadyExists(t *testing.T) {
	// Arrange
	router, mockRepo, _ := setupAuthTest()

	// Мокаем методы репозитория - пользователь уже существует
	existingUser := &model.User{ID: "user-1", Email: "existing@example.com", Name: "Existing User"}
	mockRepo.On("FindByEmail", mock.Anything, "existing@example.com").Return(existingUser, nil)

	body := `{"name":"Test User","email":"existing@example.com","password":"password123"}`

	// Act
	resp := performRequest(router, http.MethodPost, "/auth/register", body, "")

	// Assert
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.JSONEq(t, `{"message":"Email already in use"}`, resp.Body.String())

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestRegister_DuplicateDetectedOnInsert(t *testing.T) {
	// Arrange
	router, mockRepo, _ := setupAuthTest()
	mockRepo.On("FindByEmail", mock.Anything, "race@example.com").Return(nil, nil)
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(repository.ErrEmailTaken)

	body := `{"email":"race@example.com","password":"password123"}`

	// Act
	resp := performRequest(router, http.MethodPost, "/auth/register", body, "")

	// Assert
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.JSONEq(t, `{"message":"Email already in use"}`, resp.Body.String())
	mockRepo.AssertExpectations(t)
}

func TestRegister_InvalidInput(t *testing.T) {
	// Arrange
	router, mockRepo, _ := setupAuthTest()

	body := `{"email":"not-an-email","password":"123"}`

	// Act
	resp := performRequest(router, http.MethodPost, "/auth/register", body, "")

	// Assert
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var response struct {
		Message string `json:"message"`
		Errors  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, "Validation failed", response.Message)
	require.Len(t, response.Errors, 2)
	assert.Equal(t, "email", response.Errors[0].Field)
	assert.Equal(t, "must be a valid email", response.Errors[0].Message)
	assert.Equal(t, "password", response.Errors[1].Field)
	assert.Equal(t, "must be at least 6 characters", response.Errors[1].Message)

	mockRepo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestLogin_Success(t *testing.T) {
	// Arrange
	router, mockRepo, _ := setupAuthTest()

	// Создаем хешированный пароль для тестового пользователя
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	testUser := &model.User{ID: "user-7", Email: "test@example.com", Name: "Test User", PasswordHash: hash}
	mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(testUser, nil)

	body := `{"email":"TEST@example.com","password":"password123"}`

	// Act
	resp := performRequest(router, http.MethodPost, "/auth/login", body, "")

	// Assert
	require.Equal(t, http.StatusOK, resp.Code)

	var response handler.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, "user-7", response.User.ID)
	assert.Equal(t, testUser.Name, response.User.Name)
	assert.Equal(t, testUser.Email, response.User.Email)

	mockRepo.AssertExpectations(t)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	// Arrange
	router, mockRepo, _ := setupAuthTest()

	hash, err := auth.HashPassword("correct_password")
	require.NoError(t, err)
	testUser := &model.User{ID: "user-7", Email: "test@example.com", Name: "Test User", PasswordHash: hash}
	mockRepo.On("FindByEmail", mock.Anything, "test@example.com").Return(testUser, nil)

	body := `{"email":"test@example.com","password":"wrong_password"}`

	// Act
	resp := performRequest(router, http.MethodPost, "/auth/login", body, "")

	// Assert
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, resp.Body.String())
	mockRepo.AssertExpectations(t)
}

func TestLogin_UserNotFound(t *testing.T) {
	// Arrange
	router, mockRepo, _ := setupAuthTest()

	// Мокаем метод репозитория - пользователь не найден
	mockRepo.On("FindByEmail", mock.Anything, "nonexistent@example.com").Return(nil, nil)

	body := `{"email":"nonexistent@example.com","password":"password123"}`

	// Act
	resp := performRequest(router, http.MethodPost, "/auth/login", body, "")

	// Assert
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, resp.Body.String())
	mockRepo.AssertExpectations(t)
}

func TestAuthFlow_RegisterLoginMe(t *testing.T) {
	// Arrange
	router := setupRouter(repository.NewMemoryTaskRepository(), repository.NewMemoryUserRepository(), newTokens(), 1<<20)

	// Act: регистрация
	resp := performRequest(router, http.MethodPost, "/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, resp.Code)
	var registered handler.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &registered))

	// Повторная регистрация с тем же email
	dup := performRequest(router, http.MethodPost, "/auth/register", `{"name":"Other","email":"ADA@example.com","password":"secret2"}`, "")

	// Вход и запрос профиля
	login := performRequest(router, http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"secret1"}`, "")
	me := performRequest(router, http.MethodGet, "/auth/me", "", registered.Token)
	anonymous := performRequest(router, http.MethodGet, "/auth/me", "", "")

	// Assert
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.JSONEq(t, `{"message":"Email already in use"}`, dup.Body.String())

	require.Equal(t, http.StatusOK, login.Code)
	var loggedIn handler.AuthResponse
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &loggedIn))
	assert.Equal(t, registered.User, loggedIn.User)

	require.Equal(t, http.StatusOK, me.Code)
	var profile handler.UserResponse
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &profile))
	assert.Equal(t, registered.User, profile)

	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)
	assert.JSONEq(t, `{"message":"Missing token"}`, anonymous.Body.String())
}

func TestMe_UserDeleted(t *testing.T) {
	// Arrange
	router, mockRepo, tokens := setupAuthTest()
	token, err := tokens.Issue(&model.User{ID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)
	mockRepo.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

	// Act
	resp := performRequest(router, http.MethodGet, "/auth/me", "", token)

	// Assert
	assert.Equal(t, http.StatusNotFound, resp.Code)
	mockRepo.AssertExpectations(t)
}

func TestRegister_MultibytePassword(t *testing.T) {
	// Arrange
	router := setupRouter(repository.NewMemoryTaskRepository(), repository.NewMemoryUserRepository(), newTokens(), 1<<20)

	// 40 символов проходят проверку длины, но занимают 80 байт
	password := strings.Repeat("é", 40)
	credentials, err := json.Marshal(map[string]string{"email": "utf8@example.com", "password": password})
	require.NoError(t, err)

	// Act
	registered := performRequest(router, http.MethodPost, "/auth/register", string(credentials), "")
	login := performRequest(router, http.MethodPost, "/auth/login", string(credentials), "")

	// Assert
	assert.Equal(t, http.StatusCreated, registered.Code, registered.Body.String())
	assert.Equal(t, http.StatusOK, login.Code, login.Body.String())
}
