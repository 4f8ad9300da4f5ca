package token

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/devsanjithm/accountd/internal/common/db"
)

type Repository interface {
	Create(ctx context.Context, token Token) error
	FindByHashAndKind(ctx context.Context, hash string, kind Kind) (Token, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByHashAndKind(ctx context.Context, hash string, kind Kind) (int64, error)
	DeleteBySubjectAndKind(ctx context.Context, subjectID string, kind Kind) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	TxManager() TxRunner
}

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error
}

// Tx is the slice of the repository available inside a rotation
// transaction. The FOR UPDATE read serializes concurrent rotations of
// the same refresh token.
type Tx interface {
	FindByHashAndKindForUpdate(ctx context.Context, hash string, kind Kind) (Token, error)
	DeleteByID(ctx context.Context, id string) error
	Create(ctx context.Context, token Token) error
}

type PgRepository struct {
	pool  *pgxpool.Pool
	txMgr *TxManager
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{
		pool:  pool,
		txMgr: NewTxManager(pool),
	}
}

func (r *PgRepository) TxManager() TxRunner {
	return r.txMgr
}

func (r *PgRepository) Create(ctx context.Context, token Token) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO tokens (id, token_hash, subject_id, kind, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID,
		token.TokenHash,
		token.SubjectID,
		string(token.Kind),
		token.ExpiresAt,
		token.CreatedAt,
	)
	return db.HandleExecError(err, "create token", start)
}

func (r *PgRepository) FindByHashAndKind(ctx context.Context, hash string, kind Kind) (Token, error) {
	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, token_hash, subject_id, kind, expires_at, created_at
		 FROM tokens
		 WHERE token_hash = $1 AND kind = $2`,
		hash,
		string(kind),
	)
	return scanToken(row, "find token", start)
}

func (r *PgRepository) DeleteByID(ctx context.Context, id string) error {
	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`DELETE FROM tokens WHERE id = $1`,
		id,
	)
	return db.HandleExecError(err, "delete token", start)
}

func (r *PgRepository) DeleteByHashAndKind(ctx context.Context, hash string, kind Kind) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM tokens WHERE token_hash = $1 AND kind = $2`,
		hash,
		string(kind),
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete token by hash", start)
	}
	db.MeasureQueryDuration("delete token by hash", start)
	return res.RowsAffected(), nil
}

func (r *PgRepository) DeleteBySubjectAndKind(ctx context.Context, subjectID string, kind Kind) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM tokens WHERE subject_id = $1 AND kind = $2`,
		subjectID,
		string(kind),
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete subject tokens", start)
	}
	db.MeasureQueryDuration("delete subject tokens", start)
	return res.RowsAffected(), nil
}

func (r *PgRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM tokens WHERE expires_at < $1`,
		now,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete expired tokens", start)
	}
	db.MeasureQueryDuration("delete expired tokens", start)
	return res.RowsAffected(), nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindByHashAndKindForUpdate(ctx context.Context, hash string, kind Kind) (Token, error) {
	start := time.Now()
	row := t.tx.QueryRow(
		ctx,
		`SELECT id, token_hash, subject_id, kind, expires_at, created_at
		 FROM tokens
		 WHERE token_hash = $1 AND kind = $2
		 FOR UPDATE`,
		hash,
		string(kind),
	)
	return scanToken(row, "find token in tx", start)
}

func (t *pgTx) DeleteByID(ctx context.Context, id string) error {
	start := time.Now()
	_, err := t.tx.Exec(
		ctx,
		`DELETE FROM tokens WHERE id = $1`,
		id,
	)
	return db.HandleExecError(err, "delete token in tx", start)
}

func (t *pgTx) Create(ctx context.Context, token Token) error {
	start := time.Now()
	_, err := t.tx.Exec(
		ctx,
		`INSERT INTO tokens (id, token_hash, subject_id, kind, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID,
		token.TokenHash,
		token.SubjectID,
		string(token.Kind),
		token.ExpiresAt,
		token.CreatedAt,
	)
	return db.HandleExecError(err, "create token in tx", start)
}

func scanToken(row pgx.Row, operation string, start time.Time) (Token, error) {
	var t Token
	var kind string
	err := row.Scan(&t.ID, &t.TokenHash, &t.SubjectID, &kind, &t.ExpiresAt, &t.CreatedAt)
	if err := db.HandleQueryError(err, ErrTokenNotFound, operation, start); err != nil {
		return Token{}, err
	}
	t.Kind = Kind(kind)
	return t, nil
}

var ErrTokenNotFound = pgx.ErrNoRows
