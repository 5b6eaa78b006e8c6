package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key for a candidate's login session
func (r *CacheKeyStruct) CandidateSessionKey(candidateID int) string {
	return fmt.Sprintf("login:%d", candidateID)
}

// AttemptStartKey returns the cache key for a candidate's attempt start time
func (r *CacheKeyStruct) AttemptStartKey(productID string, candidateID int) string {
	return fmt.Sprintf("candidate:%d:product:%s:attempt_start", candidateID, productID)
}

// AttemptAnswersKey returns the cache key for a candidate's autosaved answers
func (r *CacheKeyStruct) AttemptAnswersKey(productID string, candidateID int) string {
	return fmt.Sprintf("candidate:%d:product:%s:answers", candidateID, productID)
}

// AttemptViolationsKey returns the cache key for a candidate's violation log
func (r *CacheKeyStruct) AttemptViolationsKey(productID string, candidateID int) string {
	return fmt.Sprintf("candidate:%d:product:%s:violations", candidateID, productID)
}

// ProductPaperKey returns the cache key for a product's question paper
func (r *CacheKeyStruct) ProductPaperKey(productID string) string {
	return fmt.Sprintf("product:%s:paper", productID)
}

// ProductKeyKey returns the cache key for a product's answer key
func (r *CacheKeyStruct) ProductKeyKey(productID string) string {
	return fmt.Sprintf("product:%s:key", productID)
}

// ProductMonitorChannel returns the Redis PubSub channel for a product's live monitor
func (r *CacheKeyStruct) ProductMonitorChannel(productID string) string {
	return fmt.Sprintf("product:%s:monitor", productID)
}

var CacheKey = NewCacheKeyStruct()
