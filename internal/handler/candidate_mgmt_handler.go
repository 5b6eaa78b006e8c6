package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/prepnotes/mocktest-backend/internal/response"
	"github.com/prepnotes/mocktest-backend/internal/service"
	"github.com/prepnotes/mocktest-backend/internal/validator"
)

// CandidateMgmtHandler handles the admin back office for candidate
// accounts: listing, edits, session resets, and exam entitlements.
type CandidateMgmtHandler struct {
	candidateService   *service.CandidateService
	entitlementService *service.EntitlementService
	authService        *service.AuthService
	entitlementRepo    *repository.EntitlementRepository
}

// NewCandidateMgmtHandler creates a new CandidateMgmtHandler.
func NewCandidateMgmtHandler(
	candidateService *service.CandidateService,
	entitlementService *service.EntitlementService,
	authService *service.AuthService,
	entitlementRepo *repository.EntitlementRepository,
) *CandidateMgmtHandler {
	return &CandidateMgmtHandler{
		candidateService:   candidateService,
		entitlementService: entitlementService,
		authService:        authService,
		entitlementRepo:    entitlementRepo,
	}
}

func parseCandidateID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("candidate_id"))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// ListCandidates godoc
// GET /api/v1/admin/candidates?page=1&per_page=25
func (h *CandidateMgmtHandler) ListCandidates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))

	candidates, pagination, err := h.candidateService.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"candidates": candidates}, pagination)
}

// GetCandidate godoc
// GET /api/v1/admin/candidates/:candidate_id
func (h *CandidateMgmtHandler) GetCandidate(c *gin.Context) {
	id, ok := parseCandidateID(c)
	if !ok {
		return
	}

	candidate, err := h.candidateService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": candidate})
}

// UpdateCandidate godoc
// PUT /api/v1/admin/candidates/:candidate_id
func (h *CandidateMgmtHandler) UpdateCandidate(c *gin.Context) {
	id, ok := parseCandidateID(c)
	if !ok {
		return
	}

	var req model.UpdateCandidateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, err := h.candidateService.Update(c.Request.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, repository.ErrDuplicateEmail):
			response.Fail(c, http.StatusConflict, response.ErrConflict)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"candidate": candidate})
}

// DeleteCandidate godoc
// DELETE /api/v1/admin/candidates/:candidate_id
func (h *CandidateMgmtHandler) DeleteCandidate(c *gin.Context) {
	id, ok := parseCandidateID(c)
	if !ok {
		return
	}

	if err := h.candidateService.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "deleted"})
}

// ResetSession godoc
// POST /api/v1/admin/candidates/:candidate_id/reset-session
// Clears the single-device session lock so the candidate can log in
// again from a new device.
func (h *CandidateMgmtHandler) ResetSession(c *gin.Context) {
	id, ok := parseCandidateID(c)
	if !ok {
		return
	}

	if err := h.authService.ResetCandidateSession(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "session_reset"})
}

// GrantEntitlement godoc
// POST /api/v1/admin/entitlements
// Records a purchase: the candidate may now attempt the product.
func (h *CandidateMgmtHandler) GrantEntitlement(c *gin.Context) {
	var req model.GrantEntitlementRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.entitlementService.Grant(c.Request.Context(), req.CandidateID, req.ProductID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"status": "granted"})
}

// RevokeEntitlement godoc
// DELETE /api/v1/admin/entitlements
func (h *CandidateMgmtHandler) RevokeEntitlement(c *gin.Context) {
	var req model.GrantEntitlementRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.entitlementService.Revoke(c.Request.Context(), req.CandidateID, req.ProductID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "revoked"})
}

// ListEntitlements godoc
// GET /api/v1/admin/candidates/:candidate_id/entitlements
func (h *CandidateMgmtHandler) ListEntitlements(c *gin.Context) {
	id, ok := parseCandidateID(c)
	if !ok {
		return
	}

	entitlements, err := h.entitlementRepo.ListEntitlements(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if entitlements == nil {
		entitlements = []model.Entitlement{}
	}

	response.Success(c, http.StatusOK, gin.H{"entitlements": entitlements})
}
