package repository

import (
	"context"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

// QuestionStore is implemented by *queries.Store and *postgrest.Client.
type QuestionStore interface {
	ListPublishedVersions(ctx context.Context, arg queries.ListPublishedVersionsParams) ([]queries.QuestionVersion, error)
	CreateQuestionWithVersion(ctx context.Context, arg queries.CreateQuestionWithVersionParams) (queries.CreateQuestionWithVersionRow, error)
	PublishVersion(ctx context.Context, arg queries.PublishVersionParams) (queries.PublishVersionRow, error)
}

// QuestionRepository wraps question and version access for either backend.
type QuestionRepository struct {
	store QuestionStore
}

func NewQuestionRepository(store QuestionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// ListPublished returns one window of published versions, newest first.
func (r *QuestionRepository) ListPublished(ctx context.Context, limit, offset int64) ([]queries.QuestionVersion, error) {
	versions, err := r.store.ListPublishedVersions(ctx, queries.ListPublishedVersionsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []queries.QuestionVersion{}
	}
	return versions, nil
}

// Create inserts a question with its first draft version.
func (r *QuestionRepository) Create(ctx context.Context, params queries.CreateQuestionWithVersionParams) (queries.CreateQuestionWithVersionRow, error) {
	return r.store.CreateQuestionWithVersion(ctx, params)
}

// Publish makes versionID the only published version of questionID.
func (r *QuestionRepository) Publish(ctx context.Context, questionID, versionID string) (queries.PublishVersionRow, error) {
	qid, err := queries.ParseUUID(questionID)
	if err != nil {
		return queries.PublishVersionRow{}, queries.ErrNotFound
	}
	vid, err := queries.ParseUUID(versionID)
	if err != nil {
		return queries.PublishVersionRow{}, queries.ErrNotFound
	}
	return r.store.PublishVersion(ctx, queries.PublishVersionParams{QuestionID: qid, VersionID: vid})
}
