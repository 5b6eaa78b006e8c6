package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/middleware"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/prepnotes/mocktest-backend/internal/response"
	"github.com/prepnotes/mocktest-backend/internal/service"
	"github.com/prepnotes/mocktest-backend/internal/validator"
)

// PortalHandler handles candidate-facing endpoints: the catalog, the
// exam lobby, and attempt lifecycle outside the WebSocket stream.
type PortalHandler struct {
	catalogService     *service.CatalogService
	entitlementService *service.EntitlementService
	proctorService     *service.ProctorService
	attemptRepo        *repository.AttemptRepository
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(
	catalogService *service.CatalogService,
	entitlementService *service.EntitlementService,
	proctorService *service.ProctorService,
	attemptRepo *repository.AttemptRepository,
) *PortalHandler {
	return &PortalHandler{
		catalogService:     catalogService,
		entitlementService: entitlementService,
		proctorService:     proctorService,
		attemptRepo:        attemptRepo,
	}
}

// GetCatalog godoc
// GET /api/v1/portal/catalog
// Returns the published mock-test products. Public endpoint; the
// storefront renders it before login.
func (h *PortalHandler) GetCatalog(c *gin.Context) {
	products, err := h.catalogService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"products": products})
}

// GetOwned godoc
// GET /api/v1/portal/products
// Returns the products the candidate has purchased.
func (h *PortalHandler) GetOwned(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	products, err := h.entitlementService.ListOwned(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"products": products})
}

// GetMyAttempts godoc
// GET /api/v1/portal/attempts
// Returns the candidate's attempt history, newest first.
func (h *PortalHandler) GetMyAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.attemptRepo.ListByCandidate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if attempts == nil {
		attempts = []model.ExamAttempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// StartAttempt godoc
// POST /api/v1/portal/products/:product_id/attempts
// Validates the pre-exam details and starts (or resumes) the proctored
// attempt. The WebSocket stream picks up from here.
func (h *PortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.proctorService.StartAttempt(c.Request.Context(), productID, claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotEntitled):
			response.Fail(c, http.StatusForbidden, response.ErrNotEntitled)
		case errors.Is(err, service.ErrProductNotPublished):
			response.Fail(c, http.StatusConflict, response.ErrProductNotPublished)
		case errors.Is(err, service.ErrAttemptFinished):
			response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"attempt_id":        sess.AttemptID,
		"session_id":        sess.Controller.SessionID(),
		"phase":             sess.Controller.Phase(),
		"remaining_seconds": sess.Controller.Remaining().Seconds(),
		"violation_count":   sess.Controller.ViolationCount(),
	})
}

// GetPaper godoc
// GET /api/v1/portal/products/:product_id/paper
// Serves the cached question paper (without answers) to a candidate with
// a running attempt.
func (h *PortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, ok := h.proctorService.Session(productID, claims.UserID); !ok {
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotRunning)
		return
	}

	paper, err := h.catalogService.GetPaper(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, service.ErrProductNotPublished) {
			response.Fail(c, http.StatusConflict, response.ErrProductNotPublished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// GetState godoc
// GET /api/v1/portal/products/:product_id/state
// Returns the resume snapshot: phase, remaining time, violation count,
// and autosaved answers. The exam UI calls this on load and reconnect.
func (h *PortalHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.proctorService.State(c.Request.Context(), productID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// AbortAttempt godoc
// DELETE /api/v1/portal/products/:product_id/attempts
// Abandons a running attempt without a grade. Terminal.
func (h *PortalHandler) AbortAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, ok := h.proctorService.Session(productID, claims.UserID)
	if !ok {
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotRunning)
		return
	}

	if err := h.proctorService.Abort(c.Request.Context(), sess); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "aborted"})
}
