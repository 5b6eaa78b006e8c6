package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepnotes/mocktest-backend/internal/middleware"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/prepnotes/mocktest-backend/internal/response"
	"github.com/prepnotes/mocktest-backend/internal/service"
	"github.com/prepnotes/mocktest-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService      *service.AuthService
	candidateService *service.CandidateService
	adminRepo        *repository.AdminRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	candidateService *service.CandidateService,
	adminRepo *repository.AdminRepository,
) *AuthHandler {
	return &AuthHandler{
		authService:      authService,
		candidateService: candidateService,
		adminRepo:        adminRepo,
	}
}

func candidateJSON(c *model.Candidate) gin.H {
	return gin.H{
		"id":      c.ID,
		"email":   c.Email,
		"name":    c.Name,
		"age":     c.Age,
		"address": c.Address,
	}
}

// Register godoc
// POST /api/v1/auth/register
// Creates a candidate account from the storefront signup form.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterCandidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, err := h.candidateService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"candidate": candidateJSON(candidate)})
}

// CandidateLogin godoc
// POST /api/v1/auth/login
// Validates email + password, checks for existing session (rejects if
// active), returns JWT.
func (h *AuthHandler) CandidateLogin(c *gin.Context) {
	var req model.CandidateLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, err := h.candidateService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(candidate.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateCandidateToken(c.Request.Context(), candidate.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionAlreadyActive) {
			response.Fail(c, http.StatusConflict, response.ErrSessionActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":     token,
		"candidate": candidateJSON(candidate),
	})
}

// CandidateLogout godoc
// POST /api/v1/auth/logout
// Logs out the currently authenticated candidate.
func (h *AuthHandler) CandidateLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetCandidateSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetCandidateProfile godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated candidate.
func (h *AuthHandler) GetCandidateProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	candidate, err := h.candidateService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": candidateJSON(candidate)})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates email + password, returns an admin JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.adminRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateAdminToken(admin.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
// Returns the profile of the currently authenticated admin.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	admin, err := h.adminRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
			"name":  admin.Name,
		},
	})
}
