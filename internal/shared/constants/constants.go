package constants

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	HeaderAuthorization      = "Authorization"
	HeaderXForwardedFor      = "X-Forwarded-For"
	HeaderXRealIP            = "X-Real-IP"
	HeaderXDebugToken        = "X-Debug-Token"
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"

	// Gin context keys set by the auth middleware.
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "user_role"
	ContextKeyClaims = "claims"

	UnknownClientKey = "unknown"
)
