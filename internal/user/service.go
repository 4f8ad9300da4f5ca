package user

import (
	"context"

	"github.com/devsanjithm/accountd/internal/common/clock"
	commoncrypto "github.com/devsanjithm/accountd/internal/common/crypto"
	"github.com/devsanjithm/accountd/internal/common/logger"
)

// Service is the thin CRUD surface over user rows. Credential and
// token flows live in the auth service; this one only owns profile
// lifecycle.
type Service struct {
	repo        Repository
	hasher      commoncrypto.PasswordHasher
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewService(
	repo Repository,
	hasher commoncrypto.PasswordHasher,
	idGenerator commoncrypto.IDGenerator,
	clk clock.Clock,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		idGenerator: idGenerator,
		clock:       clk,
		log:         log,
	}
}

func (s *Service) Create(ctx context.Context, email, displayName, password string) (User, error) {
	id, err := s.idGenerator.NewID()
	if err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, err
	}

	now := s.clock.Now()
	u := User{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Roles:        []string{DefaultRole},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_created",
	}).Info("user created")
	u.IsActive = true
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.FindAll(ctx, limit, offset)
}

func (s *Service) UpdateProfile(ctx context.Context, id, email, displayName string) (User, error) {
	return s.repo.UpdateProfile(ctx, id, email, displayName, s.clock.Now())
}

func (s *Service) UpdatePassword(ctx context.Context, id, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, id, hash, s.clock.Now())
}

func (s *Service) MarkEmailVerified(ctx context.Context, id string) error {
	return s.repo.MarkEmailVerified(ctx, id, s.clock.Now())
}

// Delete soft-deletes the user; the row stays until the purge sweep
// reclaims it after the retention window.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_soft_deleted",
	}).Info("user soft deleted")
	return nil
}

// DeleteMany soft-deletes every still-active user in ids and reports how
// many rows were marked. Ids that are unknown or already deleted are
// skipped rather than failing the batch.
func (s *Service) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	marked, err := s.repo.SoftDeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(ctx, logger.Fields{
		"requested": len(ids),
		"marked":    marked,
		"action":    "users_soft_deleted",
	}).Info("users soft deleted")
	return marked, nil
}

// Restore reactivates a soft-deleted user before the purge window
// closes and withdraws the pending audit entry.
func (s *Service) Restore(ctx context.Context, id string) error {
	if err := s.repo.Restore(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "user_restored",
	}).Info("user restored")
	return nil
}
