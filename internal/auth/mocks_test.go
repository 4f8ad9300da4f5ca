package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
	"github.com/devsanjithm/accountd/internal/token"
	"github.com/devsanjithm/accountd/internal/user"
)

// mockUserRepo keeps user rows in memory with the same soft-delete
// visibility rules as the real repository: inactive rows are invisible
// to every read and update.
type mockUserRepo struct {
	mu     sync.Mutex
	users  map[string]user.User
	ledger *mockLedger
	now    func() time.Time
}

func newMockUserRepo(ledger *mockLedger, now func() time.Time) *mockUserRepo {
	return &mockUserRepo{
		users:  make(map[string]user.User),
		ledger: ledger,
		now:    now,
	}
}

func (m *mockUserRepo) Create(_ context.Context, u user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email && existing.IsActive {
			return commonerrors.ErrEmailAlreadyTaken
		}
	}
	u.IsActive = true
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return user.User{}, commonerrors.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.IsActive {
			return u, nil
		}
	}
	return user.User{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) FindAll(_ context.Context, limit, offset int) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []user.User
	for _, u := range m.users {
		if u.IsActive {
			users = append(users, u)
		}
	}
	return users, nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, id, email, displayName string, updatedAt time.Time) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return user.User{}, commonerrors.ErrUserNotFound
	}
	u.Email = email
	u.DisplayName = displayName
	u.UpdatedAt = updatedAt
	m.users[id] = u
	return u, nil
}

func (m *mockUserRepo) UpdatePasswordHash(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return commonerrors.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) MarkEmailVerified(_ context.Context, id string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return commonerrors.ErrUserNotFound
	}
	u.IsEmailVerified = true
	u.UpdatedAt = updatedAt
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return commonerrors.ErrUserNotFound
	}
	now := m.now()
	u.IsActive = false
	u.DeletedAt = &now
	m.users[id] = u
	m.ledger.append(id, user.EntityTag, now)
	return nil
}

func (m *mockUserRepo) SoftDeleteMany(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var marked int64
	for _, id := range ids {
		u, ok := m.users[id]
		if !ok || !u.IsActive {
			continue
		}
		u.IsActive = false
		u.DeletedAt = &now
		m.users[id] = u
		m.ledger.append(id, user.EntityTag, now)
		marked++
	}
	return marked, nil
}

func (m *mockUserRepo) Restore(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.IsActive {
		return commonerrors.ErrUserNotFound
	}
	u.IsActive = true
	u.DeletedAt = nil
	m.users[id] = u
	m.ledger.remove(id, user.EntityTag)
	return nil
}

func (m *mockUserRepo) row(id string) (user.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

func (m *mockUserRepo) purge(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

type ledgerEntry struct {
	itemID     string
	entityType string
	createdAt  time.Time
}

type mockLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
}

func (l *mockLedger) append(itemID, entityType string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ledgerEntry{itemID: itemID, entityType: entityType, createdAt: at})
}

func (l *mockLedger) remove(itemID, entityType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.itemID != itemID || e.entityType != entityType {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

func (l *mockLedger) pendingFor(itemID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, e := range l.entries {
		if e.itemID == itemID {
			count++
		}
	}
	return count
}

func (l *mockLedger) aged(cutoff time.Time) []ledgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var aged []ledgerEntry
	for _, e := range l.entries {
		if !e.createdAt.After(cutoff) {
			aged = append(aged, e)
		}
	}
	return aged
}

func (l *mockLedger) consume(consumed []ledgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		keep := true
		for _, c := range consumed {
			if e == c {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

// mockTokenRepo mirrors the tokens table in memory.
type mockTokenRepo struct {
	mu   sync.Mutex
	rows map[string]token.Token
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{rows: make(map[string]token.Token)}
}

func (m *mockTokenRepo) Create(_ context.Context, t token.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[t.ID] = t
	return nil
}

func (m *mockTokenRepo) FindByHashAndKind(_ context.Context, hash string, kind token.Kind) (token.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.rows {
		if t.TokenHash == hash && t.Kind == kind {
			return t, nil
		}
	}
	return token.Token{}, token.ErrTokenNotFound
}

func (m *mockTokenRepo) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *mockTokenRepo) DeleteByHashAndKind(_ context.Context, hash string, kind token.Kind) (int64, error) {
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

func (m *mockTokenRepo) DeleteBySubjectAndKind(_ context.Context, subjectID string, kind token.Kind) (int64, error) {
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

func (m *mockTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
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

func (m *mockTokenRepo) TxManager() token.TxRunner {
	return &mockTxRunner{repo: m}
}

func (m *mockTokenRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockTxRunner struct {
	repo *mockTokenRepo
}

func (r *mockTxRunner) WithTx(ctx context.Context, fn func(context.Context, token.Tx) error) error {
	return fn(ctx, &mockTokenTx{repo: r.repo})
}

type mockTokenTx struct {
	repo *mockTokenRepo
}

func (t *mockTokenTx) FindByHashAndKindForUpdate(ctx context.Context, hash string, kind token.Kind) (token.Token, error) {
	return t.repo.FindByHashAndKind(ctx, hash, kind)
}

func (t *mockTokenTx) DeleteByID(ctx context.Context, id string) error {
	return t.repo.DeleteByID(ctx, id)
}

func (t *mockTokenTx) Create(ctx context.Context, tok token.Token) error {
	return t.repo.Create(ctx, tok)
}

// fakeHasher keeps tests fast; the real service uses bcrypt.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(hash string, password string) error {
	if hash != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type mockMailer struct {
	mu           sync.Mutex
	resetTokens  []string
	verifyTokens []string
}

func (m *mockMailer) SendPasswordReset(_ context.Context, _ string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *mockMailer) SendEmailVerification(_ context.Context, _ string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyTokens = append(m.verifyTokens, token)
	return nil
}

func (m *mockMailer) lastReset() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

func (m *mockMailer) lastVerify() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verifyTokens) == 0 {
		return ""
	}
	return m.verifyTokens[len(m.verifyTokens)-1]
}
