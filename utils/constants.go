package utils

import (
	"time"
)

// Token time constants
const (
	// AccessTokenTTL is the time-to-live for admin access tokens (2 hours)
	AccessTokenTTL = 2 * time.Hour

	// RefreshTokenTTL is the time-to-live for admin refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request context keys propagated from handlers into flows
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Seeding and analytics constants
const (
	// DefaultCustomerID is the sentinel customer that owns all synthetic demo offers
	DefaultCustomerID int64 = 1

	// SeedLockKey is the redis key guarding concurrent reseeds
	SeedLockKey = "seed:lock"

	// SeedLockTTL bounds how long a reseed may hold the lock
	SeedLockTTL = 5 * time.Minute

	// ConversionCacheKey is the redis key for the cached conversion analytics payload
	ConversionCacheKey = "analytics:conversions"

	// SegmentCacheKey is the redis key for the cached segment breakdown payload
	SegmentCacheKey = "analytics:segments"

	// AnalyticsCacheTTL is how long analytics payloads stay cached between reseeds
	AnalyticsCacheTTL = 2 * time.Minute
)
