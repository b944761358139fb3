package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/sittichok/user-service/internal/application"
	"github.com/sittichok/user-service/pkg/helpers"
	"github.com/sittichok/user-service/pkg/response"
	"github.com/sittichok/user-service/pkg/validation"
)

type AuthHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *userapp.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type registerRequest struct {
	Fullname string `json:"fullname" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerResponse struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Register POST /api/v1/users/register {fullname, email, password}
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Register(c.Request.Context(), userapp.RegisterInput{
		Fullname: req.Fullname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, userapp.ErrDuplicateEmail) {
			response.Error[any](c, http.StatusBadRequest, "email already registered", "duplicate_email")
			return
		}
		helpers.LogError(h.Logger, "register failed", err, logrus.Fields{"email": req.Email})
		response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	response.Success(c, http.StatusCreated, registerResponse{ID: res.ID, Fullname: res.Fullname}, "user registered", nil)
}

// Login POST /api/v1/users/login {email, password}
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, userapp.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	case errors.Is(err, userapp.ErrInvalidCredentials):
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	default:
		h.Logger.WithError(err).Error("login failed")
		response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	response.Success(c, http.StatusOK, loginResponse{AccessToken: res.AccessToken}, "login successful", map[string]any{"access_expires_at": res.ExpiresAt})
}
