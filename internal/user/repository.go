package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/devsanjithm/accountd/internal/common/db"
	commonerrors "github.com/devsanjithm/accountd/internal/common/errors"
	"github.com/devsanjithm/accountd/internal/softdelete"
)

type Repository interface {
	Create(ctx context.Context, u User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindAll(ctx context.Context, limit, offset int) ([]User, error)
	UpdateProfile(ctx context.Context, id, email, displayName string, updatedAt time.Time) (User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string, updatedAt time.Time) error
	SoftDelete(ctx context.Context, id string) error
	SoftDeleteMany(ctx context.Context, ids []string) (int64, error)
	Restore(ctx context.Context, id string) error
}

const userColumns = `id, email, display_name, password_hash, roles,
	 is_email_verified, is_active, deleted_at, created_at, updated_at`

// PgRepository reads only active rows. Every filter is conjoined with
// the soft-delete predicate so a logically-deleted user is invisible
// regardless of what the caller asked for; deletes route through the
// lifecycle store instead of touching the row directly.
type PgRepository struct {
	pool  *pgxpool.Pool
	store *softdelete.Store
}

func NewPgRepository(pool *pgxpool.Pool, store *softdelete.Store) *PgRepository {
	return &PgRepository{pool: pool, store: store}
}

func (r *PgRepository) Create(ctx context.Context, u User) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, email, display_name, password_hash, roles,
		 is_email_verified, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)`,
		u.ID,
		u.Email,
		u.DisplayName,
		u.PasswordHash,
		u.Roles,
		u.IsEmailVerified,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return commonerrors.ErrEmailAlreadyTaken
		}
		return db.HandleExecError(err, "create user", start)
	}
	db.MeasureQueryDuration("create user", start)
	return nil
}

func (r *PgRepository) FindByID(ctx context.Context, id string) (User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE `+softdelete.WhereActive("id = $1"),
		id,
	)
	return scanUser(row.Scan, "find user by id", start)
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE `+softdelete.WhereActive("email = $1"),
		email,
	)
	return scanUser(row.Scan, "find user by email", start)
}

func (r *PgRepository) FindAll(ctx context.Context, limit, offset int) ([]User, error) {
	start := time.Now()
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE `+softdelete.ActiveFilter+`
		 ORDER BY created_at
		 LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list users", start)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows.Scan, "list users", start)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, db.HandleQueryError(err, nil, "list users", start)
	}
	db.MeasureQueryDuration("list users", start)
	return users, nil
}

func (r *PgRepository) UpdateProfile(ctx context.Context, id, email, displayName string, updatedAt time.Time) (User, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`UPDATE users
		 SET email = $2, display_name = $3, updated_at = $4
		 WHERE `+softdelete.WhereActive("id = $1")+`
		 RETURNING `+userColumns,
		id,
		email,
		displayName,
		updatedAt,
	)
	u, err := scanUser(row.Scan, "update user profile", start)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, commonerrors.ErrEmailAlreadyTaken
		}
		return User{}, err
	}
	return u, nil
}

func (r *PgRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`UPDATE users
		 SET password_hash = $2, updated_at = $3
		 WHERE `+softdelete.WhereActive("id = $1"),
		id,
		passwordHash,
		updatedAt,
	)
	if err != nil {
		return db.HandleExecError(err, "update user password", start)
	}
	if res.RowsAffected() == 0 {
		return commonerrors.ErrUserNotFound
	}
	db.MeasureQueryDuration("update user password", start)
	return nil
}

func (r *PgRepository) MarkEmailVerified(ctx context.Context, id string, updatedAt time.Time) error {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`UPDATE users
		 SET is_email_verified = TRUE, updated_at = $2
		 WHERE `+softdelete.WhereActive("id = $1"),
		id,
		updatedAt,
	)
	if err != nil {
		return db.HandleExecError(err, "mark email verified", start)
	}
	if res.RowsAffected() == 0 {
		return commonerrors.ErrUserNotFound
	}
	db.MeasureQueryDuration("mark email verified", start)
	return nil
}

func (r *PgRepository) SoftDelete(ctx context.Context, id string) error {
	err := r.store.SoftDelete(ctx, EntityTag, id)
	if errors.Is(err, softdelete.ErrNoActiveRow) {
		return commonerrors.ErrUserNotFound
	}
	return err
}

func (r *PgRepository) SoftDeleteMany(ctx context.Context, ids []string) (int64, error) {
	return r.store.SoftDeleteMany(ctx, EntityTag, ids)
}

func (r *PgRepository) Restore(ctx context.Context, id string) error {
	err := r.store.Restore(ctx, EntityTag, id)
	if errors.Is(err, softdelete.ErrNoInactiveRow) {
		return commonerrors.ErrUserNotFound
	}
	return err
}

func scanUser(scan func(dest ...any) error, operation string, start time.Time) (User, error) {
	var u User
	err := scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.Roles,
		&u.IsEmailVerified,
		&u.IsActive,
		&u.DeletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err := db.HandleQueryError(err, commonerrors.ErrUserNotFound, operation, start); err != nil {
		return User{}, err
	}
	return u, nil
}
