package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sd-tech/leetai-api/internal/dto"
	"github.com/sd-tech/leetai-api/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	app, _ := setupApp(t, &testRunner{}, &testScheduler{})

	body, err := json.Marshal(dto.RegisterRequest{
		Name:     "Bob",
		Email:    "Bob@Example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var registerResp struct {
		Data dto.AuthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registerResp))
	require.NotEmpty(t, registerResp.Data.Token)
	require.Equal(t, "bob@example.com", registerResp.Data.User.Email)
	require.Equal(t, models.RoleUser, registerResp.Data.User.Role)

	body, err = json.Marshal(dto.LoginRequest{Email: "bob@example.com", Password: "supersecret"})
	require.NoError(t, err)

	req = httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterDuplicateEmailReturns409(t *testing.T) {
	app, db := setupApp(t, &testRunner{}, &testScheduler{})

	require.NoError(t, db.Create(&models.User{
		Name: "Carol", Email: "carol@example.com", PasswordHash: "x", Role: models.RoleUser,
	}).Error)

	body, _ := json.Marshal(dto.RegisterRequest{Name: "Carol", Email: "carol@example.com", Password: "supersecret"})
	req := httptest.NewRequest("POST", "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLoginWrongPasswordReturns401(t *testing.T) {
	app, db := setupApp(t, &testRunner{}, &testScheduler{})

	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Name: "Dave", Email: "dave@example.com", PasswordHash: string(hash), Role: models.RoleUser,
	}).Error)

	body, _ := json.Marshal(dto.LoginRequest{Email: "dave@example.com", Password: "wrong-password"})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminLogin(t *testing.T) {
	app, _ := setupApp(t, &testRunner{}, &testScheduler{})

	body, _ := json.Marshal(dto.AdminLoginRequest{Username: "ops", Password: "pw"})
	req := httptest.NewRequest("POST", "/api/v1/auth/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var loginResp struct {
		Data dto.AuthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Data.Token)
	require.Equal(t, models.RoleAdmin, loginResp.Data.User.Role)

	body, _ = json.Marshal(dto.AdminLoginRequest{Username: "ops", Password: "nope"})
	req = httptest.NewRequest("POST", "/api/v1/auth/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	app, db := setupApp(t, &testRunner{}, &testScheduler{})
	_, user := seedProblemAndUser(t, db)

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var meResp struct {
		Data dto.UserResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meResp))
	require.Equal(t, user.ID, meResp.Data.ID)
}

func TestListUsersAdminOnly(t *testing.T) {
	app, db := setupAppAs(t, &testRunner{}, &testScheduler{}, "user")
	seedProblemAndUser(t, db)

	req := httptest.NewRequest("GET", "/api/v1/admin/users", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupApp(t, &testRunner{}, &testScheduler{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
