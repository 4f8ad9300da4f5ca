package constants

import "time"

const (
	PasswordMinLength  = 8
	PasswordMaxLength  = 72
	JWTSecretMinLength = 32
	BcryptCost         = 12

	DefaultHTTPPort       = "8080"
	DefaultRequestTimeout = 5 * time.Second

	DefaultAccessTokenTTL        = 30 * time.Minute
	DefaultRefreshTokenTTL       = 30 * 24 * time.Hour
	DefaultResetPasswordTokenTTL = 10 * time.Minute
	DefaultVerifyEmailTokenTTL   = 10 * time.Minute

	DefaultPurgeRetention = 7 * 24 * time.Hour
	DefaultPurgeInterval  = 24 * time.Hour
	DefaultReaperInterval = time.Hour

	DefaultSessionTTL             = 24 * time.Hour
	SessionCacheCleanupInterval   = time.Minute
	DefaultSessionLookupTimeout   = 200 * time.Millisecond
	DefaultCacheBreakerThreshold  = 5
	DefaultCacheBreakerResetAfter = 10 * time.Second

	DBPoolMaxConns        = 25
	DBPoolMinConns        = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBQueryTimeout        = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second
)
