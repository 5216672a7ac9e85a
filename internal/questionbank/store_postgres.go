package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/naming"
)

const dbTimeout = 5 * time.Second

// Schema creates the questions table. Name keys are stored next to the
// document so listings and tallies match names the way the catalog does.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS questions (
		id          UUID PRIMARY KEY,
		exam_id     TEXT NOT NULL,
		exam_key    TEXT NOT NULL,
		year        INTEGER NOT NULL,
		subject     TEXT NOT NULL,
		subject_key TEXT NOT NULL,
		doc         JSONB NOT NULL,
		deleted_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS questions_triple_idx
		ON questions (exam_id, year, subject_key) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS questions_exam_key_idx
		ON questions (exam_key, year, subject_key) WHERE deleted_at IS NULL`,
}

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed question store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, q Question) (Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc, err := json.Marshal(q)
	if err != nil {
		return Question{}, fmt.Errorf("marshal question: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (id, exam_id, exam_key, year, subject, subject_key, doc, created_at, updated_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`,
		q.ID, q.ExamID, naming.Key(q.ExamName), q.Year, q.Subject, naming.Key(q.Subject), doc, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	return q.clone(), nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Question, error) {
	if err := checkID(id); err != nil {
		return Question{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanQuestion(s.pool.QueryRow(ctx,
		`SELECT doc FROM questions WHERE id = $1::uuid AND deleted_at IS NULL`, id), id)
}

func (s *PostgresStore) Update(ctx context.Context, q Question) (Question, error) {
	if err := checkID(q.ID); err != nil {
		return Question{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	doc, err := json.Marshal(q)
	if err != nil {
		return Question{}, fmt.Errorf("marshal question: %w", err)
	}
	cmd, err := s.pool.Exec(ctx,
		`UPDATE questions
		 SET exam_id = $2, exam_key = $3, year = $4, subject = $5, subject_key = $6, doc = $7::jsonb, updated_at = $8
		 WHERE id = $1::uuid AND deleted_at IS NULL`,
		q.ID, q.ExamID, naming.Key(q.ExamName), q.Year, q.Subject, naming.Key(q.Subject), doc, q.UpdatedAt,
	)
	if err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return Question{}, fmt.Errorf("question %s: %w", q.ID, ErrQuestionNotFound)
	}
	return q.clone(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string, hard bool) (Question, error) {
	if err := checkID(id); err != nil {
		return Question{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `UPDATE questions SET deleted_at = now()
		WHERE id = $1::uuid AND deleted_at IS NULL RETURNING doc`
	if hard {
		query = `DELETE FROM questions WHERE id = $1::uuid RETURNING doc`
	}
	return scanQuestion(s.pool.QueryRow(ctx, query, id), id)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var examKey, subjectKey string
	if f.ExamName != "" {
		examKey = naming.Key(f.ExamName)
	}
	if f.Subject != "" {
		subjectKey = naming.Key(f.Subject)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM questions
		 WHERE deleted_at IS NULL
		   AND ($1 = '' OR exam_id = $1)
		   AND ($2 = '' OR exam_key = $2)
		   AND ($3 = 0 OR year = $3)
		   AND ($4 = '' OR subject_key = $4)
		 ORDER BY created_at ASC, id ASC`,
		f.ExamID, examKey, f.Year, subjectKey,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountBySubject(ctx context.Context, examID string) ([]catalog.SubjectCount, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT year, min(subject), count(*) FROM questions
		 WHERE exam_id = $1 AND deleted_at IS NULL
		 GROUP BY year, subject_key
		 ORDER BY year, subject_key`,
		examID,
	)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	defer rows.Close()

	var out []catalog.SubjectCount
	for rows.Next() {
		var c catalog.SubjectCount
		var n int64
		if err := rows.Scan(&c.Year, &c.Subject, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		c.Count = int(n)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return out, nil
}

func scanQuestion(row pgx.Row, id string) (Question, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, fmt.Errorf("question %s: %w", id, ErrQuestionNotFound)
		}
		return Question{}, fmt.Errorf("scan question: %w", err)
	}
	var q Question
	if err := json.Unmarshal(doc, &q); err != nil {
		return Question{}, fmt.Errorf("decode question: %w", err)
	}
	return q, nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("question %s: %w", id, ErrQuestionNotFound)
	}
	return nil
}
