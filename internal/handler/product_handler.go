package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/prepnotes/mocktest-backend/internal/response"
	"github.com/prepnotes/mocktest-backend/internal/service"
	"github.com/prepnotes/mocktest-backend/internal/validator"
)

// ProductHandler handles admin CRUD for exam products, their question
// banks, and the per-product results board.
type ProductHandler struct {
	catalogService *service.CatalogService
	attemptRepo    *repository.AttemptRepository
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(
	catalogService *service.CatalogService,
	attemptRepo *repository.AttemptRepository,
) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		attemptRepo:    attemptRepo,
	}
}

func parseProductID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failProduct maps catalog service errors onto the response envelope.
func failProduct(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrProductNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrProductNotDraft)
	case errors.Is(err, service.ErrProductNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrProductNotPublished)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// ListProducts godoc
// GET /api/v1/admin/products
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"products": products})
}

// GetProduct godoc
// GET /api/v1/admin/products/:product_id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	product, err := h.catalogService.GetByID(c.Request.Context(), id)
	if err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"product": product})
}

// CreateProduct godoc
// POST /api/v1/admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req model.CreateProductRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	product, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct godoc
// PUT /api/v1/admin/products/:product_id
// Draft products only; published papers are immutable.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	var req model.UpdateProductRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	product, err := h.catalogService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"product": product})
}

// DeleteProduct godoc
// DELETE /api/v1/admin/products/:product_id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	if err := h.catalogService.Delete(c.Request.Context(), id); err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "deleted"})
}

// PublishProduct godoc
// POST /api/v1/admin/products/:product_id/publish
// Warms the paper and answer-key caches, then flips the status. Fails if
// the product has no questions.
func (h *ProductHandler) PublishProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	if err := h.catalogService.Publish(c.Request.Context(), id); err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "published"})
}

// ArchiveProduct godoc
// POST /api/v1/admin/products/:product_id/archive
func (h *ProductHandler) ArchiveProduct(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	if err := h.catalogService.Archive(c.Request.Context(), id); err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "archived"})
}

// ListQuestions godoc
// GET /api/v1/admin/products/:product_id/questions
func (h *ProductHandler) ListQuestions(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	questions, err := h.catalogService.ListQuestions(c.Request.Context(), id)
	if err != nil {
		failProduct(c, err)
		return
	}
	if questions == nil {
		questions = []model.ProductQuestion{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// AddQuestion godoc
// POST /api/v1/admin/products/:product_id/questions
func (h *ProductHandler) AddQuestion(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.catalogService.AddQuestion(c.Request.Context(), id, &req)
	if err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/products/:product_id/questions
// Bulk-replaces the entire question bank of a draft product.
func (h *ProductHandler) ReplaceQuestions(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.catalogService.ReplaceQuestions(c.Request.Context(), id, &req); err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "replaced"})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/products/:product_id/questions/:question_id
func (h *ProductHandler) DeleteQuestion(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.catalogService.RemoveQuestion(c.Request.Context(), productID, questionID); err != nil {
		failProduct(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "deleted"})
}

// ListResults godoc
// GET /api/v1/admin/products/:product_id/results?page=1&per_page=25
// The results board: graded attempts sorted best-first.
func (h *ProductHandler) ListResults(c *gin.Context) {
	id, ok := parseProductID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "25"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 25
	}

	results, total, err := h.attemptRepo.ListByProduct(c.Request.Context(), id, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []repository.AttemptResult{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results},
		response.NewPagination(page, perPage, int(total)))
}

// ListAttemptViolations godoc
// GET /api/v1/admin/products/:product_id/candidates/:candidate_id/violations
// The violation log of one candidate's attempt.
func (h *ProductHandler) ListAttemptViolations(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	candidateID, err := strconv.Atoi(c.Param("candidate_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	violations, err := h.attemptRepo.ListViolations(c.Request.Context(), productID, candidateID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if violations == nil {
		violations = []model.AttemptViolation{}
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}
