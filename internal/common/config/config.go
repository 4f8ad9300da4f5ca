package config

import (
	"fmt"
	"os"
	"time"

	"github.com/devsanjithm/accountd/internal/common/constants"
	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
)

type Config struct {
	HTTPPort       string
	DatabaseURL    string
	JWTSecret      string
	RequestTimeout time.Duration

	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	ResetPasswordTokenTTL time.Duration
	VerifyEmailTokenTTL   time.Duration

	PurgeRetention time.Duration
	PurgeInterval  time.Duration
	ReaperInterval time.Duration

	SessionTTL           time.Duration
	SessionLookupTimeout time.Duration
}

func Load() (Config, error) {
	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	if len(jwtSecret) < constants.JWTSecretMinLength {
		return Config{}, fmt.Errorf("%w: got %d bytes", commonerrors.ErrInvalidJWTSecret, len(jwtSecret))
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPPort:       getEnv("HTTP_PORT", constants.DefaultHTTPPort),
		DatabaseURL:    databaseURL,
		JWTSecret:      jwtSecret,
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),

		AccessTokenTTL:        getDurationEnv("ACCESS_TOKEN_TTL", constants.DefaultAccessTokenTTL),
		RefreshTokenTTL:       getDurationEnv("REFRESH_TOKEN_TTL", constants.DefaultRefreshTokenTTL),
		ResetPasswordTokenTTL: getDurationEnv("RESET_PASSWORD_TOKEN_TTL", constants.DefaultResetPasswordTokenTTL),
		VerifyEmailTokenTTL:   getDurationEnv("VERIFY_EMAIL_TOKEN_TTL", constants.DefaultVerifyEmailTokenTTL),

		PurgeRetention: getDurationEnv("PURGE_RETENTION", constants.DefaultPurgeRetention),
		PurgeInterval:  getDurationEnv("PURGE_INTERVAL", constants.DefaultPurgeInterval),
		ReaperInterval: getDurationEnv("TOKEN_REAPER_INTERVAL", constants.DefaultReaperInterval),

		SessionTTL:           getDurationEnv("SESSION_TTL", constants.DefaultSessionTTL),
		SessionLookupTimeout: getDurationEnv("SESSION_LOOKUP_TIMEOUT", constants.DefaultSessionLookupTimeout),
	}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", commonerrors.ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
