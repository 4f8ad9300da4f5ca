package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/devsanjithm/accountd/internal/common/clock"
	commoncrypto "github.com/devsanjithm/accountd/internal/common/crypto"
	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
	"github.com/devsanjithm/accountd/internal/common/logger"
)

type mockRepo struct {
	mu   sync.Mutex
	rows map[string]Token
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[string]Token)}
}

func (m *mockRepo) Create(_ context.Context, t Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.ID] = t
	return nil
}

func (m *mockRepo) FindByHashAndKind(_ context.Context, hash string, kind Kind) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.TokenHash == hash && t.Kind == kind {
			return t, nil
		}
	}
	return Token{}, ErrTokenNotFound
}

func (m *mockRepo) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *mockRepo) DeleteByHashAndKind(_ context.Context, hash string, kind Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, t := range m.rows {
		if t.TokenHash == hash && t.Kind == kind {
			delete(m.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockRepo) DeleteBySubjectAndKind(_ context.Context, subjectID string, kind Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, t := range m.rows {
		if t.SubjectID == subjectID && t.Kind == kind {
			delete(m.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, t := range m.rows {
		if t.ExpiresAt.Before(now) {
			delete(m.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockRepo) TxManager() TxRunner {
	return &mockTxRunner{repo: m}
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockTxRunner struct {
	repo *mockRepo
}

func (r *mockTxRunner) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	return fn(ctx, &mockTx{repo: r.repo})
}

type mockTx struct {
	repo *mockRepo
}

func (t *mockTx) FindByHashAndKindForUpdate(ctx context.Context, hash string, kind Kind) (Token, error) {
	return t.repo.FindByHashAndKind(ctx, hash, kind)
}

func (t *mockTx) DeleteByID(ctx context.Context, id string) error {
	return t.repo.DeleteByID(ctx, id)
}

func (t *mockTx) Create(ctx context.Context, token Token) error {
	return t.repo.Create(ctx, token)
}

const testSecret = "0123456789abcdef0123456789abcdef"

func setupAuthority(t *testing.T) (*Authority, *mockRepo, *clock.MockClock) {
	t.Helper()
	log, err := logger.New("", "test", "error")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	mockClock := clock.NewMockClock(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))
	repo := newMockRepo()
	authority := NewAuthority(
		testSecret,
		TTLConfig{
			Access:        30 * time.Minute,
			Refresh:       30 * 24 * time.Hour,
			ResetPassword: 10 * time.Minute,
			VerifyEmail:   10 * time.Minute,
		},
		repo,
		commoncrypto.NewUUIDGenerator(),
		mockClock,
		log,
	)
	return authority, repo, mockClock
}

func TestAuthority_AccessTokenRoundTrip(t *testing.T) {
	authority, repo, _ := setupAuthority(t)

	access, err := authority.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.count() != 0 {
		t.Errorf("access tokens must not be persisted, found %d rows", repo.count())
	}

	claims, err := authority.Parse(access, KindAccess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.SubjectID != "user-1" {
		t.Errorf("expected subject user-1, got %q", claims.SubjectID)
	}
	if claims.Kind != KindAccess {
		t.Errorf("expected kind ACCESS, got %q", claims.Kind)
	}
}

func TestAuthority_KindMismatchRejected(t *testing.T) {
	authority, _, _ := setupAuthority(t)

	access, err := authority.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := authority.Parse(access, KindRefresh); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for kind mismatch, got %v", err)
	}
}

func TestAuthority_ExpiredAccessTokenRejected(t *testing.T) {
	authority, _, mockClock := setupAuthority(t)

	access, err := authority.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mockClock.Advance(31 * time.Minute)

	if _, err := authority.Parse(access, KindAccess); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated after expiry, got %v", err)
	}
}

func TestAuthority_TamperedTokenRejected(t *testing.T) {
	authority, _, _ := setupAuthority(t)

	access, err := authority.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tampered := access[:len(access)-2] + "xx"
	if _, err := authority.Parse(tampered, KindAccess); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated for tampered token, got %v", err)
	}
}

func TestAuthority_RefreshRotationPreventsReplay(t *testing.T) {
	authority, _, _ := setupAuthority(t)
	ctx := context.Background()

	pair, err := authority.IssuePair(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r1 := pair.RefreshToken

	rotated, subjectID, err := authority.Rotate(ctx, r1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subjectID != "user-1" {
		t.Errorf("expected subject user-1, got %q", subjectID)
	}
	if rotated.AccessToken == "" || rotated.RefreshToken == "" {
		t.Fatal("expected a full replacement pair")
	}
	if rotated.RefreshToken == r1 {
		t.Error("rotation must issue a new refresh token")
	}

	if _, _, err := authority.Rotate(ctx, r1); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected replay of consumed token to fail, got %v", err)
	}

	if _, _, err := authority.Rotate(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("rotating the replacement token failed: %v", err)
	}
	if _, _, err := authority.Rotate(ctx, rotated.RefreshToken); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected second use of rotated token to fail, got %v", err)
	}
}

func TestAuthority_ConsumeInvalidatesAllOfKind(t *testing.T) {
	authority, repo, _ := setupAuthority(t)
	ctx := context.Background()

	first, err := authority.Issue(ctx, "user-1", KindResetPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := authority.Issue(ctx, "user-1", KindResetPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subjectID, err := authority.Consume(ctx, second, KindResetPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subjectID != "user-1" {
		t.Errorf("expected subject user-1, got %q", subjectID)
	}
	if repo.count() != 0 {
		t.Errorf("expected every reset row gone, found %d", repo.count())
	}

	if _, err := authority.Verify(ctx, first, KindResetPassword); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected the other outstanding token to be invalidated, got %v", err)
	}
	if _, err := authority.Consume(ctx, second, KindResetPassword); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected the consumed token to fail on reuse, got %v", err)
	}
}

func TestAuthority_VerifyRequiresStoredRow(t *testing.T) {
	authority, repo, _ := setupAuthority(t)
	ctx := context.Background()

	refresh, err := authority.Issue(ctx, "user-1", KindRefresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := authority.Verify(ctx, refresh, KindRefresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := repo.DeleteBySubjectAndKind(ctx, "user-1", KindRefresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := authority.Verify(ctx, refresh, KindRefresh); !errors.Is(err, commonerrors.ErrUnauthenticated) {
		t.Errorf("expected signature-valid token without a row to fail, got %v", err)
	}
}

func TestAuthority_RevokeDeletesStoredRow(t *testing.T) {
	authority, repo, _ := setupAuthority(t)
	ctx := context.Background()

	pair, err := authority.IssuePair(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subjectID, err := authority.Revoke(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subjectID != "user-1" {
		t.Errorf("expected subject user-1, got %q", subjectID)
	}
	if repo.count() != 0 {
		t.Errorf("expected refresh row deleted, found %d", repo.count())
	}

	// revoking again is a no-op, not an error
	if _, err := authority.Revoke(ctx, pair.RefreshToken); err != nil {
		t.Errorf("unexpected error on double revoke: %v", err)
	}
}
