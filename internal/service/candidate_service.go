package service

import (
	"context"
	"fmt"

	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/prepnotes/mocktest-backend/internal/response"
)

// CandidateService handles candidate account business logic.
type CandidateService struct {
	candidateRepo *repository.CandidateRepository
	authService   *AuthService
}

// NewCandidateService creates a new CandidateService.
func NewCandidateService(candidateRepo *repository.CandidateRepository, authService *AuthService) *CandidateService {
	return &CandidateService{candidateRepo: candidateRepo, authService: authService}
}

// Register creates a new candidate account with a hashed password.
func (s *CandidateService) Register(ctx context.Context, req *model.RegisterCandidateRequest) (*model.Candidate, error) {
	hash, err := s.authService.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	c := &model.Candidate{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Age:          req.Age,
		Address:      req.Address,
	}
	if err := s.candidateRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByEmail retrieves a candidate by their unique email.
func (s *CandidateService) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	return s.candidateRepo.GetByEmail(ctx, email)
}

// GetByID retrieves a candidate by ID.
func (s *CandidateService) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	return s.candidateRepo.GetByID(ctx, id)
}

// List retrieves candidates with pagination.
func (s *CandidateService) List(ctx context.Context, page, perPage int) ([]model.Candidate, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	candidates, total, err := s.candidateRepo.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if candidates == nil {
		candidates = []model.Candidate{}
	}

	return candidates, response.NewPagination(page, perPage, total), nil
}

// Update modifies a candidate; a non-empty password is re-hashed.
func (s *CandidateService) Update(ctx context.Context, id int, req *model.UpdateCandidateRequest) (*model.Candidate, error) {
	c, err := s.candidateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = req.Name
	c.Email = req.Email
	c.Age = req.Age
	c.Address = req.Address

	if req.Password != "" {
		hash, err := s.authService.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		c.PasswordHash = hash
	} else {
		c.PasswordHash = ""
	}

	if err := s.candidateRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.candidateRepo.GetByID(ctx, id)
}

// Delete removes a candidate account.
func (s *CandidateService) Delete(ctx context.Context, id int) error {
	return s.candidateRepo.Delete(ctx, id)
}
