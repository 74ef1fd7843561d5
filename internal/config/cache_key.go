package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AssessmentPayloadKey returns the cache key for a live assessment's
// taker-facing payload (questions with answers withheld).
func (r *CacheKeyStruct) AssessmentPayloadKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:payload", assessmentID)
}

// AttemptAnswersKey returns the cache key mirroring a taker's autosaved
// answers for one assessment.
func (r *CacheKeyStruct) AttemptAnswersKey(assessmentID string, takerID int) string {
	return fmt.Sprintf("taker:%d:assessment:%s:answers", takerID, assessmentID)
}

// AttemptStartKey returns the cache key for a taker's attempt start time.
func (r *CacheKeyStruct) AttemptStartKey(assessmentID string, takerID int) string {
	return fmt.Sprintf("taker:%d:assessment:%s:attempt_start", takerID, assessmentID)
}

var CacheKey = NewCacheKeyStruct()
