package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
	"github.com/devsanjithm/accountd/internal/common/logger"
	"github.com/devsanjithm/accountd/internal/softdelete"
	"github.com/devsanjithm/accountd/internal/user"
)

// mockSweeper reclaims soft-deleted user rows whose audit entries have
// aged past the cutoff, mirroring the grouped transactional sweep.
type mockSweeper struct {
	users  *mockUserRepo
	ledger *mockLedger
}

func (s *mockSweeper) Sweep(_ context.Context, cutoff time.Time) (softdelete.SweepResult, error) {
	aged := s.ledger.aged(cutoff)
	var result softdelete.SweepResult
	for _, e := range aged {
		if e.entityType != user.EntityTag {
			return softdelete.SweepResult{}, softdelete.ErrUnknownEntity
		}
		if u, ok := s.users.row(e.itemID); ok && !u.IsActive {
			s.users.purge(e.itemID)
			result.RowsDeleted++
		}
	}
	s.ledger.consume(aged)
	result.EntriesConsumed = int64(len(aged))
	if result.RowsDeleted > 0 {
		result.Groups = 1
	}
	return result, nil
}

func TestLifecycle_SoftDeleteThenPurge(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	u, _ := registerUser(t, env)

	if err := env.userSvc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the row is invisible but still present, with one pending audit entry
	if _, err := env.userSvc.GetByEmail(ctx, "alice@example.com"); !errors.Is(err, commonerrors.ErrUserNotFound) {
		t.Fatalf("expected soft-deleted user to be invisible, got %v", err)
	}
	if _, ok := env.users.row(u.ID); !ok {
		t.Fatal("expected the row to survive soft delete")
	}
	if pending := env.users.ledger.pendingFor(u.ID); pending != 1 {
		t.Fatalf("expected exactly one pending audit entry, got %d", pending)
	}

	log, err := logger.New("", "test", "error")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	purger := softdelete.NewPurger(
		&mockSweeper{users: env.users, ledger: env.users.ledger},
		7*24*time.Hour,
		env.mockClock,
		log,
	)

	// inside the retention window nothing is reclaimed
	result, err := purger.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsDeleted != 0 {
		t.Fatalf("expected no rows reclaimed inside retention, got %d", result.RowsDeleted)
	}

	env.mockClock.Advance(8 * 24 * time.Hour)

	result, err = purger.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowsDeleted != 1 {
		t.Fatalf("expected one row reclaimed, got %d", result.RowsDeleted)
	}

	if _, ok := env.users.row(u.ID); ok {
		t.Error("expected the row to be physically gone after purge")
	}
	if pending := env.users.ledger.pendingFor(u.ID); pending != 0 {
		t.Errorf("expected the audit entry consumed, got %d pending", pending)
	}
}

func TestLifecycle_RestoreWithdrawsAuditEntry(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	u, _ := registerUser(t, env)

	if err := env.userSvc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := env.userSvc.Restore(ctx, u.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := env.userSvc.GetByEmail(ctx, "alice@example.com"); err != nil {
		t.Errorf("expected restored user to be visible, got %v", err)
	}
	if pending := env.users.ledger.pendingFor(u.ID); pending != 0 {
		t.Errorf("expected the audit entry withdrawn, got %d pending", pending)
	}

	// a restored row survives a later sweep
	log, err := logger.New("", "test", "error")
	if err != nil {
		t.Fatalf("failed to build logger: %v", err)
	}
	purger := softdelete.NewPurger(
		&mockSweeper{users: env.users, ledger: env.users.ledger},
		7*24*time.Hour,
		env.mockClock,
		log,
	)
	env.mockClock.Advance(8 * 24 * time.Hour)
	if _, err := purger.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := env.users.row(u.ID); !ok {
		t.Error("expected the restored row to survive the sweep")
	}
}
