package auth_test

import (
	"strings"
	"testing"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestIssueAndVerifyToken(t *testing.T) {
	// Arrange
	tokens := auth.NewTokenService(testSecret, 24*time.Hour)
	user := &model.User{ID: "665f1c2e9b1d4a3f8c7e6d5a", Email: "test@example.com"}

	// Act
	token, err := tokens.Issue(user)
	require.NoError(t, err)
	identity, err := tokens.Verify(token)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, user.ID, identity.ID)
	assert.Equal(t, user.Email, identity.Email)
}

func TestVerify_InvalidToken(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour)

	_, err := tokens.Verify("invalid-token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := auth.NewTokenService("another-secret", time.Hour)
	token, err := issuer.Issue(&model.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	// Токен выпущен два часа назад со сроком жизни в один час
	past := time.Now().Add(-2 * time.Hour)
	issuer := auth.NewTokenService(testSecret, time.Hour).WithClock(func() time.Time { return past })
	token, err := issuer.Issue(&model.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = auth.NewTokenService(testSecret, time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_MissingExpiry(t *testing.T) {
	token := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub":   "u1",
		"email": "a@b.c",
	})

	_, err := auth.NewTokenService(testSecret, time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_WrongAlgorithm(t *testing.T) {
	token := signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := auth.NewTokenService(testSecret, time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_MissingSubject(t *testing.T) {
	token := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"email": "a@b.c",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	_, err := auth.NewTokenService(testSecret, time.Hour).Verify(token)

	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
		{"Bearer   abc.def.ghi", "", false},
		{"Bearer abc.def.ghi ", "", false},
		{"Bearer abc def", "", false},
	}

	for _, tc := range cases {
		token, ok := auth.BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, "password123"))
	assert.False(t, auth.CheckPassword(hash, "wrong_password"))
}

func TestPasswordHash_MultibyteOver72Bytes(t *testing.T) {
	// 40 символов, 80 байт
	password := strings.Repeat("é", 40)

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	assert.True(t, auth.CheckPassword(hash, password))
	assert.False(t, auth.CheckPassword(hash, strings.Repeat("é", 35)))
}
