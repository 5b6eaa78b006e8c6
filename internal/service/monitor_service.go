package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/repository"
)

// MonitorService orchestrates the live proctoring dashboard business logic.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitorRepo *repository.MonitorRepository) *MonitorService {
	return &MonitorService{monitorRepo: monitorRepo}
}

// CandidateProgressSnapshot holds the answered count and violation count
// for every in-progress candidate of one product.
type CandidateProgressSnapshot struct {
	InProgress      []int         `json:"in_progress"`
	AnsweredCounts  map[int]int64 `json:"answered_counts"`
	ViolationCounts map[int]int64 `json:"violation_counts"`
	TotalViolations int64         `json:"total_violations"`
}

// GetCandidateProgress returns answered counts and violation counts. The
// two independent fetches run in parallel to minimize dashboard latency.
func (s *MonitorService) GetCandidateProgress(ctx context.Context, productID uuid.UUID) (*CandidateProgressSnapshot, error) {
	ids, err := s.monitorRepo.GetInProgressCandidateIDs(ctx, productID)
	if err != nil {
		return nil, err
	}

	snapshot := &CandidateProgressSnapshot{
		InProgress:      ids,
		AnsweredCounts:  make(map[int]int64),
		ViolationCounts: make(map[int]int64),
	}
	if len(ids) == 0 {
		return snapshot, nil
	}

	var (
		answeredCounts  map[int]int64
		violationCounts map[int]int64
		answeredErr     error
		violationErr    error
		wg              sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		answeredCounts, answeredErr = s.monitorRepo.GetAnsweredCounts(ctx, productID, ids)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		violationCounts, violationErr = s.monitorRepo.GetViolationCounts(ctx, productID)
	}()

	wg.Wait()

	// Answered counts are critical; violation counts are best-effort.
	if answeredErr != nil {
		return nil, answeredErr
	}

	if answeredCounts != nil {
		snapshot.AnsweredCounts = answeredCounts
	}

	if violationErr == nil && violationCounts != nil {
		snapshot.ViolationCounts = violationCounts
		for _, count := range violationCounts {
			snapshot.TotalViolations += count
		}
	}

	return snapshot, nil
}
