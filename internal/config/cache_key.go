package config

import (
	"fmt"
	"strings"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key holding the active JTI for a candidate.
func (r *CacheKeyStruct) CandidateSessionKey(candidateID string) string {
	return fmt.Sprintf("login:%s", candidateID)
}

// LoginAttemptsKey returns the counter key for failed logins against an email.
func (r *CacheKeyStruct) LoginAttemptsKey(email string) string {
	return fmt.Sprintf("login_attempts:%s", strings.ToLower(email))
}

// TestMonitorChannel returns the Redis PubSub channel name for the live proctor feed.
func (r *CacheKeyStruct) TestMonitorChannel() string {
	return "test:monitor"
}

var CacheKey = NewCacheKeyStruct()
