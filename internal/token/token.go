package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Kind names one of the four bearer-token flavors. ACCESS tokens are
// stateless; the other three kinds are persisted rows, single-use.
type Kind string

const (
	KindAccess        Kind = "ACCESS"
	KindRefresh       Kind = "REFRESH"
	KindResetPassword Kind = "RESET_PASSWORD"
	KindVerifyEmail   Kind = "VERIFY_EMAIL"
)

func (k Kind) Persisted() bool {
	return k != KindAccess
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAccess, KindRefresh, KindResetPassword, KindVerifyEmail:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown token kind %q", s)
}

// Token is a persisted token row. The signed string itself is never
// stored, only its sha256 hash.
type Token struct {
	ID        string
	TokenHash string
	SubjectID string
	Kind      Kind
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Claims is the verified payload of a signed token string.
type Claims struct {
	SubjectID string
	Kind      Kind
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is the result of a login or a refresh rotation.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// HashToken maps a signed token string to its at-rest form.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
