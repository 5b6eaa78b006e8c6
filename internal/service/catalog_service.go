package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/proctor"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNoQuestions         = errors.New("product has no questions, cannot publish")
	ErrProductNotDraft     = errors.New("product status is not DRAFT")
	ErrProductNotPublished = errors.New("product status is not PUBLISHED")
)

// CatalogService handles exam product business logic and Redis caching.
// Published products keep their candidate-facing paper and the answer key
// hot in Redis so an exam start never touches PostgreSQL.
type CatalogService struct {
	productRepo  *repository.ProductRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	productRepo *repository.ProductRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		productRepo:  productRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "catalog_service").Logger(),
	}
}

// GetByID retrieves a product by its UUID.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamProduct, error) {
	return s.productRepo.GetByID(ctx, id)
}

// ListAll retrieves every product for the back office.
func (s *CatalogService) ListAll(ctx context.Context) ([]model.ExamProduct, error) {
	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.ExamProduct{}
	}
	return products, nil
}

// ListPublished retrieves the storefront catalog.
func (s *CatalogService) ListPublished(ctx context.Context) ([]model.ExamProduct, error) {
	products, err := s.productRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.ExamProduct{}
	}
	return products, nil
}

// Create inserts a new product as DRAFT.
func (s *CatalogService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.ExamProduct, error) {
	p := &model.ExamProduct{
		Level:              req.Level,
		Title:              req.Title,
		DurationMinutes:    req.DurationMinutes,
		MarkCorrect:        req.MarkCorrect,
		MarkWrong:          req.MarkWrong,
		MaxViolations:      req.MaxViolations,
		PassPercent:        req.PassPercent,
		IdleTimeoutSeconds: req.IdleTimeoutSeconds,
	}
	if err := s.productRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update modifies a draft product's settings.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateProductRequest) (*model.ExamProduct, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.ProductStatusDraft {
		return nil, ErrProductNotDraft
	}

	if req.Level != "" {
		p.Level = req.Level
	}
	if req.Title != "" {
		p.Title = req.Title
	}
	if req.DurationMinutes != nil {
		p.DurationMinutes = *req.DurationMinutes
	}
	if req.MarkCorrect != nil {
		p.MarkCorrect = *req.MarkCorrect
	}
	if req.MarkWrong != nil {
		p.MarkWrong = *req.MarkWrong
	}
	if req.MaxViolations != nil {
		p.MaxViolations = *req.MaxViolations
	}
	if req.PassPercent != nil {
		p.PassPercent = *req.PassPercent
	}
	if req.IdleTimeoutSeconds != nil {
		p.IdleTimeoutSeconds = *req.IdleTimeoutSeconds
	}

	if err := s.productRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a draft product.
func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Status != model.ProductStatusDraft {
		return ErrProductNotDraft
	}
	return s.productRepo.Delete(ctx, id)
}

// AddQuestion appends a question to a draft product.
func (s *CatalogService) AddQuestion(ctx context.Context, productID uuid.UUID, req *model.AddQuestionRequest) (*model.ProductQuestion, error) {
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status != model.ProductStatusDraft {
		return nil, ErrProductNotDraft
	}

	orderNum := req.OrderNum
	if orderNum == 0 {
		count, err := s.questionRepo.CountByProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		orderNum = count + 1
	}

	q := &model.ProductQuestion{
		ProductID:     productID,
		Section:       req.Section,
		Prompt:        req.Prompt,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		OrderNum:      orderNum,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	if err := s.productRepo.SyncQuestionCount(ctx, productID); err != nil {
		return nil, err
	}
	return q, nil
}

// ReplaceQuestions swaps the full question set of a draft product.
func (s *CatalogService) ReplaceQuestions(ctx context.Context, productID uuid.UUID, req *model.ReplaceQuestionsRequest) error {
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p.Status != model.ProductStatusDraft {
		return ErrProductNotDraft
	}

	questions := make([]model.ProductQuestion, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = model.ProductQuestion{
			Section:       q.Section,
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
		}
	}
	return s.questionRepo.ReplaceForProduct(ctx, productID, questions)
}

// RemoveQuestion deletes one question from a draft product.
func (s *CatalogService) RemoveQuestion(ctx context.Context, productID, questionID uuid.UUID) error {
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p.Status != model.ProductStatusDraft {
		return ErrProductNotDraft
	}

	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return err
	}
	return s.productRepo.SyncQuestionCount(ctx, productID)
}

// ListQuestions retrieves the full question set for the back office.
func (s *CatalogService) ListQuestions(ctx context.Context, productID uuid.UUID) ([]model.ProductQuestion, error) {
	return s.questionRepo.ListByProduct(ctx, productID)
}

// Publish changes product status to PUBLISHED and caches the paper and
// answer key in Redis. Candidates can only start published products.
func (s *CatalogService) Publish(ctx context.Context, productID uuid.UUID) error {
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if p.Status != model.ProductStatusDraft {
		return ErrProductNotDraft
	}

	if err := s.WarmProductCache(ctx, p); err != nil {
		return err
	}

	if err := s.productRepo.UpdateStatus(ctx, productID, model.ProductStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("product_id", productID.String()).Msg("Product published")
	return nil
}

// Archive retires a published product from the storefront. Existing
// attempts keep their data.
func (s *CatalogService) Archive(ctx context.Context, productID uuid.UUID) error {
	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if p.Status != model.ProductStatusPublished {
		return ErrProductNotPublished
	}

	if err := s.productRepo.UpdateStatus(ctx, productID, model.ProductStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.ProductPaperKey(productID.String()))
	pipe.Del(ctx, config.CacheKey.ProductKeyKey(productID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("product_id", productID.String()).Msg("Failed to evict caches")
	}

	s.log.Info().Str("product_id", productID.String()).Msg("Product archived")
	return nil
}

// WarmProductCache loads a product's paper and answer key from PostgreSQL
// into Redis. Used by Publish and PrewarmAllCaches.
func (s *CatalogService) WarmProductCache(ctx context.Context, p *model.ExamProduct) error {
	questions, err := s.questionRepo.ListByProduct(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Candidate-facing paper, without correct answers.
	candidateQuestions := make([]model.QuestionForCandidate, len(questions))
	engineQuestions := make([]proctor.Question, len(questions))
	for i, q := range questions {
		candidateQuestions[i] = model.QuestionForCandidate{
			ID:       q.ID,
			Section:  q.Section,
			Prompt:   q.Prompt,
			Options:  q.Options,
			OrderNum: q.OrderNum,
		}
		engineQuestions[i] = q.EngineQuestion()
	}

	paper := model.ProductPaper{
		ProductID:       p.ID,
		Title:           p.Title,
		DurationMinutes: p.DurationMinutes,
		Questions:       candidateQuestions,
	}

	paperJSON, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	keyJSON, err := json.Marshal(engineQuestions)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ProductPaperKey(p.ID.String()), paperJSON, 0)
	pipe.Set(ctx, config.CacheKey.ProductKeyKey(p.ID.String()), keyJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("product_id", p.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published products into Redis on application
// startup, so the first exam start of the day is as fast as the last.
func (s *CatalogService) PrewarmAllCaches(ctx context.Context) error {
	products, err := s.productRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published products: %w", err)
	}

	if len(products) == 0 {
		s.log.Info().Msg("No published products to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(products)).Msg("Prewarming published products...")

	warmed := 0
	for i := range products {
		if err := s.WarmProductCache(ctx, &products[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("product_id", products[i].ID.String()).
				Msg("Failed to warm product, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(products)).
		Msg("Prewarming complete")
	return nil
}

// GetPaper retrieves the cached candidate paper from Redis.
func (s *CatalogService) GetPaper(ctx context.Context, productID uuid.UUID) (*model.ProductPaper, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ProductPaperKey(productID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProductNotPublished
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	var paper model.ProductPaper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("unmarshal paper: %w", err)
	}
	return &paper, nil
}

// GetEngineQuestions retrieves the cached answer key from Redis in the
// shape the exam engine grades with.
func (s *CatalogService) GetEngineQuestions(ctx context.Context, productID uuid.UUID) ([]proctor.Question, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ProductKeyKey(productID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrProductNotPublished
		}
		return nil, fmt.Errorf("get answer key: %w", err)
	}

	var questions []proctor.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal answer key: %w", err)
	}
	return questions, nil
}
