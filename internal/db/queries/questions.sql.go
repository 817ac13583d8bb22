package queries

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const versionColumns = `id, question_id, version_number, title, content_json, options_json, explanation, is_published, published_at, created_by, created_at`

const questionColumns = `id, slug, discipline, difficulty, active_version_id, created_by, created_at`

const listPublishedVersions = `
SELECT ` + versionColumns + `
FROM question_versions
WHERE is_published = true
ORDER BY published_at DESC, id ASC
LIMIT $1 OFFSET $2
`

type ListPublishedVersionsParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListPublishedVersions(ctx context.Context, arg ListPublishedVersionsParams) ([]QuestionVersion, error) {
	rows, err := q.db.Query(ctx, listPublishedVersions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuestionVersion
	for rows.Next() {
		i, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertQuestion = `
INSERT INTO questions (slug, discipline, difficulty, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + questionColumns

type InsertQuestionParams struct {
	Slug       pgtype.Text
	Discipline pgtype.Text
	Difficulty string
	CreatedBy  pgtype.UUID
}

func (q *Queries) InsertQuestion(ctx context.Context, arg InsertQuestionParams) (Question, error) {
	row := q.db.QueryRow(ctx, insertQuestion, arg.Slug, arg.Discipline, arg.Difficulty, arg.CreatedBy)
	return scanQuestion(row)
}

const insertQuestionVersion = `
INSERT INTO question_versions (question_id, version_number, title, content_json, options_json, explanation, created_by, is_published)
VALUES ($1, $2, $3, $4, $5, $6, $7, false)
RETURNING ` + versionColumns

type InsertQuestionVersionParams struct {
	QuestionID    pgtype.UUID
	VersionNumber int32
	Title         string
	ContentJSON   json.RawMessage
	OptionsJSON   json.RawMessage
	Explanation   pgtype.Text
	CreatedBy     pgtype.UUID
}

func (q *Queries) InsertQuestionVersion(ctx context.Context, arg InsertQuestionVersionParams) (QuestionVersion, error) {
	row := q.db.QueryRow(ctx, insertQuestionVersion,
		arg.QuestionID,
		arg.VersionNumber,
		arg.Title,
		arg.ContentJSON,
		arg.OptionsJSON,
		arg.Explanation,
		arg.CreatedBy,
	)
	return scanVersion(row)
}

const lockQuestionVersion = `
SELECT ` + versionColumns + `
FROM question_versions
WHERE id = $1 AND question_id = $2
FOR UPDATE
`

type LockQuestionVersionParams struct {
	ID         pgtype.UUID
	QuestionID pgtype.UUID
}

// LockQuestionVersion row-locks the version; must run inside a transaction.
func (q *Queries) LockQuestionVersion(ctx context.Context, arg LockQuestionVersionParams) (QuestionVersion, error) {
	row := q.db.QueryRow(ctx, lockQuestionVersion, arg.ID, arg.QuestionID)
	return scanVersion(row)
}

const markVersionPublished = `
UPDATE question_versions
SET is_published = true,
    published_at = COALESCE(published_at, $2)
WHERE id = $1
RETURNING ` + versionColumns

type MarkVersionPublishedParams struct {
	ID          pgtype.UUID
	PublishedAt pgtype.Timestamptz
}

func (q *Queries) MarkVersionPublished(ctx context.Context, arg MarkVersionPublishedParams) (QuestionVersion, error) {
	row := q.db.QueryRow(ctx, markVersionPublished, arg.ID, arg.PublishedAt)
	return scanVersion(row)
}

const unpublishSiblingVersions = `
UPDATE question_versions
SET is_published = false
WHERE question_id = $1 AND id <> $2 AND is_published
`

type UnpublishSiblingVersionsParams struct {
	QuestionID pgtype.UUID
	KeepID     pgtype.UUID
}

func (q *Queries) UnpublishSiblingVersions(ctx context.Context, arg UnpublishSiblingVersionsParams) (int64, error) {
	tag, err := q.db.Exec(ctx, unpublishSiblingVersions, arg.QuestionID, arg.KeepID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const setActiveVersion = `
UPDATE questions
SET active_version_id = $2
WHERE id = $1
RETURNING ` + questionColumns

type SetActiveVersionParams struct {
	ID              pgtype.UUID
	ActiveVersionID pgtype.UUID
}

func (q *Queries) SetActiveVersion(ctx context.Context, arg SetActiveVersionParams) (Question, error) {
	row := q.db.QueryRow(ctx, setActiveVersion, arg.ID, arg.ActiveVersionID)
	return scanQuestion(row)
}

func scanQuestion(row pgx.Row) (Question, error) {
	var i Question
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Discipline,
		&i.Difficulty,
		&i.ActiveVersionID,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

func scanVersion(row pgx.Row) (QuestionVersion, error) {
	var i QuestionVersion
	err := row.Scan(
		&i.ID,
		&i.QuestionID,
		&i.VersionNumber,
		&i.Title,
		&i.ContentJSON,
		&i.OptionsJSON,
		&i.Explanation,
		&i.IsPublished,
		&i.PublishedAt,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}
