package queries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// TxBeginner is the part of *pgxpool.Pool the Store needs to open transactions.
type TxBeginner interface {
	DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Store adds the multi-statement admin writes on top of Queries.
type Store struct {
	*Queries
	db  TxBeginner
	now func() time.Time
}

// NewStore binds queries and transactions to the same pool.
func NewStore(db TxBeginner) *Store {
	return &Store{
		Queries: New(db),
		db:      db,
		now:     time.Now,
	}
}

// ExecTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are rethrown after rollback.
func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("commit tx: %w", cErr)
		}
	}()

	err = fn(s.WithTx(tx))
	return err
}

type CreateQuestionWithVersionParams struct {
	Slug        pgtype.Text
	Discipline  pgtype.Text
	Difficulty  string
	Title       string
	ContentJSON json.RawMessage
	OptionsJSON json.RawMessage
	Explanation pgtype.Text
	CreatedBy   pgtype.UUID
}

type CreateQuestionWithVersionRow struct {
	Question Question        `json:"question"`
	Version  QuestionVersion `json:"version"`
}

// CreateQuestionWithVersion inserts a question and its first, unpublished version.
func (s *Store) CreateQuestionWithVersion(ctx context.Context, arg CreateQuestionWithVersionParams) (CreateQuestionWithVersionRow, error) {
	var out CreateQuestionWithVersionRow
	err := s.ExecTx(ctx, func(q *Queries) error {
		question, err := q.InsertQuestion(ctx, InsertQuestionParams{
			Slug:       arg.Slug,
			Discipline: arg.Discipline,
			Difficulty: arg.Difficulty,
			CreatedBy:  arg.CreatedBy,
		})
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}

		version, err := q.InsertQuestionVersion(ctx, InsertQuestionVersionParams{
			QuestionID:    question.ID,
			VersionNumber: 1,
			Title:         arg.Title,
			ContentJSON:   arg.ContentJSON,
			OptionsJSON:   arg.OptionsJSON,
			Explanation:   arg.Explanation,
			CreatedBy:     arg.CreatedBy,
		})
		if err != nil {
			return fmt.Errorf("insert version: %w", err)
		}

		out = CreateQuestionWithVersionRow{Question: question, Version: version}
		return nil
	})
	return out, err
}

type PublishVersionParams struct {
	QuestionID pgtype.UUID
	VersionID  pgtype.UUID
}

type PublishVersionRow struct {
	PublishedVersion QuestionVersion `json:"publishedVersion"`
	Question         Question        `json:"question"`
}

// PublishVersion marks the version published, unpublishes its siblings and
// points the question at it, all in one transaction. Re-publishing keeps the
// original published_at.
func (s *Store) PublishVersion(ctx context.Context, arg PublishVersionParams) (PublishVersionRow, error) {
	var out PublishVersionRow
	err := s.ExecTx(ctx, func(q *Queries) error {
		if _, err := q.LockQuestionVersion(ctx, LockQuestionVersionParams{
			ID:         arg.VersionID,
			QuestionID: arg.QuestionID,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock version: %w", err)
		}

		version, err := q.MarkVersionPublished(ctx, MarkVersionPublishedParams{
			ID:          arg.VersionID,
			PublishedAt: pgtype.Timestamptz{Time: s.now().UTC(), Valid: true},
		})
		if err != nil {
			return fmt.Errorf("mark published: %w", err)
		}

		if _, err := q.UnpublishSiblingVersions(ctx, UnpublishSiblingVersionsParams{
			QuestionID: arg.QuestionID,
			KeepID:     arg.VersionID,
		}); err != nil {
			return fmt.Errorf("unpublish siblings: %w", err)
		}

		question, err := q.SetActiveVersion(ctx, SetActiveVersionParams{
			ID:              arg.QuestionID,
			ActiveVersionID: arg.VersionID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("set active version: %w", err)
		}

		out = PublishVersionRow{PublishedVersion: version, Question: question}
		return nil
	})
	return out, err
}

// Ping checks connectivity using a trivial statement.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}
