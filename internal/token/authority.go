package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/devsanjithm/accountd/internal/common/clock"
	commoncrypto "github.com/devsanjithm/accountd/internal/common/crypto"
	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/observability/metrics"
)

// TTLConfig carries the per-kind token lifetimes.
type TTLConfig struct {
	Access        time.Duration
	Refresh       time.Duration
	ResetPassword time.Duration
	VerifyEmail   time.Duration
}

func (c TTLConfig) For(kind Kind) time.Duration {
	switch kind {
	case KindAccess:
		return c.Access
	case KindRefresh:
		return c.Refresh
	case KindResetPassword:
		return c.ResetPassword
	case KindVerifyEmail:
		return c.VerifyEmail
	}
	return 0
}

// Authority issues and validates the four bearer-token kinds. ACCESS
// tokens are pure signature checks; the persisted kinds additionally
// require a live row in the tokens table, which makes them single-use.
type Authority struct {
	secret      []byte
	ttl         TTLConfig
	repo        Repository
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	parser      *jwt.Parser
	log         *logger.Logger
}

func NewAuthority(
	secret string,
	ttl TTLConfig,
	repo Repository,
	idGenerator commoncrypto.IDGenerator,
	clk clock.Clock,
	log *logger.Logger,
) *Authority {
	return &Authority{
		secret:      []byte(secret),
		ttl:         ttl,
		repo:        repo,
		idGenerator: idGenerator,
		clock:       clk,
		parser:      jwt.NewParser(jwt.WithTimeFunc(clk.Now)),
		log:         log,
	}
}

func (a *Authority) sign(subjectID string, kind Kind) (raw string, token Token, err error) {
	jti, err := a.idGenerator.NewID()
	if err != nil {
		return "", Token{}, err
	}

	now := a.clock.Now()
	expiresAt := now.Add(a.ttl.For(kind))
	claims := jwt.MapClaims{
		"sub": subjectID,
		"typ": string(kind),
		"jti": jti,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err = t.SignedString(a.secret)
	if err != nil {
		return "", Token{}, err
	}

	return raw, Token{
		ID:        jti,
		TokenHash: HashToken(raw),
		SubjectID: subjectID,
		Kind:      kind,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// IssueAccess signs a stateless ACCESS token. Nothing is persisted;
// liveness beyond expiry is the session cache's concern.
func (a *Authority) IssueAccess(subjectID string) (string, error) {
	raw, _, err := a.sign(subjectID, KindAccess)
	if err != nil {
		return "", err
	}
	metrics.TokensIssued.WithLabelValues(string(KindAccess)).Inc()
	return raw, nil
}

// Issue signs a token of the given kind and, for persisted kinds,
// stores its hash row.
func (a *Authority) Issue(ctx context.Context, subjectID string, kind Kind) (string, error) {
	if kind == KindAccess {
		return a.IssueAccess(subjectID)
	}

	raw, stored, err := a.sign(subjectID, kind)
	if err != nil {
		return "", err
	}
	if err := a.repo.Create(ctx, stored); err != nil {
		return "", err
	}

	metrics.TokensIssued.WithLabelValues(string(kind)).Inc()
	return raw, nil
}

// IssuePair issues the ACCESS+REFRESH pair handed out at login.
func (a *Authority) IssuePair(ctx context.Context, subjectID string) (Pair, error) {
	access, err := a.IssueAccess(subjectID)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := a.Issue(ctx, subjectID, KindRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Parse checks signature, expiry and kind of a signed token string.
// Every failure surfaces as ErrUnauthenticated so callers cannot tell
// which check failed.
func (a *Authority) Parse(raw string, want Kind) (Claims, error) {
	parsed, err := a.parser.Parse(raw, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, a.rejected(want, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, a.rejected(want, errors.New("invalid claims type"))
	}

	sub, _ := mapClaims["sub"].(string)
	typ, _ := mapClaims["typ"].(string)
	jti, _ := mapClaims["jti"].(string)
	if sub == "" || jti == "" {
		return Claims{}, a.rejected(want, errors.New("missing sub or jti claim"))
	}
	kind, err := ParseKind(typ)
	if err != nil {
		return Claims{}, a.rejected(want, err)
	}
	if kind != want {
		return Claims{}, a.rejected(want, errors.New("token kind mismatch"))
	}

	iat, _ := mapClaims["iat"].(float64)
	exp, _ := mapClaims["exp"].(float64)

	return Claims{
		SubjectID: sub,
		Kind:      want,
		TokenID:   jti,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// Verify parses the token and, for persisted kinds, confirms an
// unconsumed stored row still exists.
func (a *Authority) Verify(ctx context.Context, raw string, kind Kind) (Claims, error) {
	claims, err := a.Parse(raw, kind)
	if err != nil {
		return Claims{}, err
	}
	if !kind.Persisted() {
		return claims, nil
	}

	stored, err := a.repo.FindByHashAndKind(ctx, HashToken(raw), kind)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Claims{}, a.rejected(kind, err)
		}
		return Claims{}, err
	}
	if !stored.ExpiresAt.After(a.clock.Now()) {
		return Claims{}, a.rejected(kind, errors.New("stored token expired"))
	}
	return claims, nil
}

// Rotate consumes a REFRESH token and replaces it: the old row is
// deleted and a fresh REFRESH row is created in one transaction, then
// a new ACCESS token is signed. A consumed token cannot be replayed.
func (a *Authority) Rotate(ctx context.Context, raw string) (Pair, string, error) {
	claims, err := a.Parse(raw, KindRefresh)
	if err != nil {
		return Pair{}, "", err
	}

	newRaw, newStored, err := a.sign(claims.SubjectID, KindRefresh)
	if err != nil {
		return Pair{}, "", err
	}

	err = a.repo.TxManager().WithTx(ctx, func(ctx context.Context, tx Tx) error {
		stored, err := tx.FindByHashAndKindForUpdate(ctx, HashToken(raw), KindRefresh)
		if err != nil {
			if errors.Is(err, ErrTokenNotFound) {
				return a.rejected(KindRefresh, err)
			}
			return err
		}
		if !stored.ExpiresAt.After(a.clock.Now()) {
			return a.rejected(KindRefresh, errors.New("stored token expired"))
		}
		if err := tx.DeleteByID(ctx, stored.ID); err != nil {
			return err
		}
		return tx.Create(ctx, newStored)
	})
	if err != nil {
		return Pair{}, "", err
	}

	access, err := a.IssueAccess(claims.SubjectID)
	if err != nil {
		return Pair{}, "", err
	}

	metrics.TokensConsumed.WithLabelValues(string(KindRefresh)).Inc()
	metrics.TokensIssued.WithLabelValues(string(KindRefresh)).Inc()
	return Pair{AccessToken: access, RefreshToken: newRaw}, claims.SubjectID, nil
}

// Consume validates a single-use token and deletes every stored row of
// its kind for the subject, so any other outstanding token of the same
// kind dies with it.
func (a *Authority) Consume(ctx context.Context, raw string, kind Kind) (string, error) {
	claims, err := a.Verify(ctx, raw, kind)
	if err != nil {
		return "", err
	}

	if _, err := a.repo.DeleteBySubjectAndKind(ctx, claims.SubjectID, kind); err != nil {
		return "", err
	}

	metrics.TokensConsumed.WithLabelValues(string(kind)).Inc()
	return claims.SubjectID, nil
}

// Revoke removes the stored row of a REFRESH token on logout. The raw
// string only needs to hash to an existing row; an already-deleted row
// is not an error.
func (a *Authority) Revoke(ctx context.Context, raw string) (string, error) {
	claims, err := a.Parse(raw, KindRefresh)
	if err != nil {
		return "", err
	}

	deleted, err := a.repo.DeleteByHashAndKind(ctx, HashToken(raw), KindRefresh)
	if err != nil {
		return "", err
	}
	if deleted > 0 {
		metrics.TokensRevoked.Inc()
	}
	return claims.SubjectID, nil
}

func (a *Authority) rejected(kind Kind, cause error) error {
	metrics.TokenValidationFailures.WithLabelValues(string(kind)).Inc()
	if a.log != nil && cause != nil {
		a.log.Debugf("token validation failed kind=%s: %v", kind, cause)
	}
	if cause != nil {
		return commonerrors.ErrUnauthenticated.WithCause(cause)
	}
	return commonerrors.ErrUnauthenticated
}
