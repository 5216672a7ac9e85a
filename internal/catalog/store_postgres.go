package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbTimeout         = 5 * time.Second
	pgUniqueViolation = "23505"
)

// Schema creates the exams table. Each exam tree is one JSONB document so a
// row lock covers every year and subject of the exam.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS exams (
		id         UUID PRIMARY KEY,
		code       TEXT NOT NULL UNIQUE,
		category   TEXT NOT NULL,
		is_active  BOOLEAN NOT NULL,
		doc        JSONB NOT NULL,
		version    BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS exams_category_idx ON exams (category, is_active)`,
}

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed exam store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, e Exam) (Exam, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc, err := json.Marshal(e)
	if err != nil {
		return Exam{}, fmt.Errorf("marshal exam: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO exams (id, code, category, is_active, doc, version, created_at, updated_at)
		 VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6, $7, $8)`,
		e.ID, e.Code, string(e.Category), e.IsActive, doc, e.Version, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Exam{}, fmt.Errorf("code %q: %w", e.Code, ErrDuplicateCode)
		}
		return Exam{}, fmt.Errorf("insert exam: %w", err)
	}
	return e.Clone(), nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Exam, error) {
	if err := checkID(id); err != nil {
		return Exam{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanExam(s.pool.QueryRow(ctx,
		`SELECT doc, version FROM exams WHERE id = $1::uuid`, id), id)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Exam, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT doc, version FROM exams
		 WHERE ($1 = '' OR category = $1)
		   AND ($2::boolean IS NULL OR is_active = $2)
		 ORDER BY created_at ASC, code ASC`,
		string(f.Category), f.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("query exams: %w", err)
	}
	defer rows.Close()

	exams := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows, "")
		if err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exams: %w", err)
	}
	return exams, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, fn MutateFunc) (Exam, error) {
	if err := checkID(id); err != nil {
		return Exam{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Exam{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanExam(tx.QueryRow(ctx,
		`SELECT doc, version FROM exams WHERE id = $1::uuid FOR UPDATE`, id), id)
	if err != nil {
		return Exam{}, err
	}

	next := current.Clone()
	changed, err := fn(&next)
	if err != nil {
		return Exam{}, err
	}
	if !changed {
		return current, nil
	}

	next.ID = current.ID
	next.Code = current.Code
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(next)
	if err != nil {
		return Exam{}, fmt.Errorf("marshal exam: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE exams
		 SET doc = $2::jsonb, category = $3, is_active = $4, version = $5, updated_at = $6
		 WHERE id = $1::uuid`,
		id, doc, string(next.Category), next.IsActive, next.Version, next.UpdatedAt,
	); err != nil {
		return Exam{}, fmt.Errorf("update exam: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Exam{}, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("exam %s: %w", id, ErrExamNotFound)
	}
	return nil
}

func scanExam(row pgx.Row, id string) (Exam, error) {
	var doc []byte
	var version int64
	if err := row.Scan(&doc, &version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Exam{}, fmt.Errorf("exam %s: %w", id, ErrExamNotFound)
		}
		return Exam{}, fmt.Errorf("scan exam: %w", err)
	}
	var e Exam
	if err := json.Unmarshal(doc, &e); err != nil {
		return Exam{}, fmt.Errorf("decode exam: %w", err)
	}
	e.Version = version
	if e.Years == nil {
		e.Years = []Year{}
	}
	return e, nil
}

// checkID maps malformed ids to not-found instead of a database cast error.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("exam %s: %w", id, ErrExamNotFound)
	}
	return nil
}
