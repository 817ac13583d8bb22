package question

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

// Store is the persistence the service needs; *repository.QuestionRepository satisfies it.
type Store interface {
	ListPublished(ctx context.Context, limit, offset int64) ([]queries.QuestionVersion, error)
	Create(ctx context.Context, params queries.CreateQuestionWithVersionParams) (queries.CreateQuestionWithVersionRow, error)
	Publish(ctx context.Context, questionID, versionID string) (queries.PublishVersionRow, error)
}

// Service reads the published listing and performs admin writes.
type Service struct {
	store       Store
	cache       PageCache
	feed        FeedPublisher
	validate    *validator.Validate
	group       singleflight.Group
	readTimeout time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// DefaultReadTimeout bounds a shared page read when no timeout is configured.
const DefaultReadTimeout = 5 * time.Second

// NewService wires the store with optional cache and feed; pass nil to disable either.
func NewService(store Store, cache PageCache, feed FeedPublisher, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		cache:       cache,
		feed:        feed,
		validate:    validator.New(),
		readTimeout: DefaultReadTimeout,
		now:         time.Now,
		logger:      logger.With().Str("component", "question_service").Logger(),
	}
}

// WithReadTimeout sets the bound on a shared page read. Non-positive values keep the default.
func (s *Service) WithReadTimeout(d time.Duration) *Service {
	if d > 0 {
		s.readTimeout = d
	}
	return s
}

// ListPublished returns one page of published versions ordered by
// published_at descending, then id ascending.
func (s *Service) ListPublished(ctx context.Context, req PageRequest) ([]Version, error) {
	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.Page < 1 {
		req.Page = 1
	}

	gen, cacheable := int64(0), false
	if s.cache != nil {
		versions, g, hit, err := s.cache.Get(ctx, req)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("page cache read failed")
		case hit:
			return versions, nil
		default:
			gen, cacheable = g, true
		}
	}

	key := fmt.Sprintf("%d:%d:%d", gen, req.Page, req.PageSize)
	// The shared read outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.readTimeout)
		defer cancel()

		rows, err := s.store.ListPublished(readCtx, int64(req.PageSize), req.Offset())
		if err != nil {
			return nil, err
		}
		versions := versionsFromRows(rows)
		if cacheable {
			if err := s.cache.Set(readCtx, gen, req, versions); err != nil {
				s.logger.Warn().Err(err).Msg("page cache write failed")
			}
		}
		return versions, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrContentLookupFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContentLookupFailed, res.Err)
		}
		return res.Val.([]Version), nil
	}
}

// CreateQuestion validates req and stores the question with an unpublished
// version 1 in a single transaction.
func (s *Service) CreateQuestion(ctx context.Context, req CreateRequest) (Question, Version, error) {
	normalizeCreate(&req)
	if err := s.validate.Struct(req); err != nil {
		return Question{}, Version{}, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if !json.Valid(req.ContentJSON) {
		return Question{}, Version{}, fmt.Errorf("%w: contentJson is not valid JSON", ErrValidationFailed)
	}
	if len(req.OptionsJSON) > 0 && !json.Valid(req.OptionsJSON) {
		return Question{}, Version{}, fmt.Errorf("%w: optionsJson is not valid JSON", ErrValidationFailed)
	}

	params := queries.CreateQuestionWithVersionParams{
		Slug:        optionalText(req.Slug),
		Discipline:  optionalText(req.Discipline),
		Difficulty:  req.Difficulty,
		Title:       req.Title,
		ContentJSON: req.ContentJSON,
		OptionsJSON: req.OptionsJSON,
		Explanation: optionalText(req.Explanation),
	}
	if req.CreatedByID != nil {
		id, err := queries.ParseUUID(*req.CreatedByID)
		if err != nil {
			return Question{}, Version{}, fmt.Errorf("%w: createdById: %v", ErrValidationFailed, err)
		}
		params.CreatedBy = id
	}

	row, err := s.store.Create(ctx, params)
	if err != nil {
		return Question{}, Version{}, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	q, v := questionFromRow(row.Question), versionFromRow(row.Version)
	s.logger.Info().Str("question_id", q.ID).Str("version_id", v.ID).Msg("question created")
	return q, v, nil
}

// PublishVersion makes versionID the single published version of questionID.
// Publishing an already published version keeps its original published_at.
func (s *Service) PublishVersion(ctx context.Context, questionID, versionID string) (Version, Question, error) {
	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		return Version{}, Question{}, fmt.Errorf("%w: versionId required", ErrValidationFailed)
	}

	row, err := s.store.Publish(ctx, questionID, versionID)
	if err != nil {
		if errors.Is(err, queries.ErrNotFound) {
			return Version{}, Question{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return Version{}, Question{}, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	v, q := versionFromRow(row.PublishedVersion), questionFromRow(row.Question)
	s.afterPublish(ctx, v)
	return v, q, nil
}

// afterPublish runs once the transaction committed; failures only degrade
// freshness and are logged.
func (s *Service) afterPublish(ctx context.Context, v Version) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("page cache invalidation failed")
		}
	}
	if s.feed != nil {
		publishedAt := s.now().UTC()
		if v.PublishedAt != nil {
			publishedAt = *v.PublishedAt
		}
		evt := PublishedEvent{QuestionID: v.QuestionID, VersionID: v.ID, PublishedAt: publishedAt}
		if err := s.feed.PublishQuestion(ctx, evt); err != nil {
			s.logger.Warn().Err(err).Msg("publish event not delivered")
		}
	}
	s.logger.Info().Str("question_id", v.QuestionID).Str("version_id", v.ID).Msg("version published")
}

func normalizeCreate(req *CreateRequest) {
	req.Title = strings.TrimSpace(req.Title)
	req.Difficulty = strings.ToUpper(strings.TrimSpace(req.Difficulty))
	if req.Difficulty == "" {
		req.Difficulty = DifficultyMedium
	}
	if isJSONFalsy(req.ContentJSON) {
		req.ContentJSON = nil
	}
	if isJSONNull(req.OptionsJSON) {
		req.OptionsJSON = nil
	}
	for _, p := range []**string{&req.Slug, &req.Discipline, &req.Explanation, &req.CreatedByID} {
		if *p != nil && strings.TrimSpace(**p) == "" {
			*p = nil
		}
	}
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// isJSONFalsy reports null, "", false and numeric zero. Content carrying any
// of these counts as absent.
func isJSONFalsy(raw json.RawMessage) bool {
	if isJSONNull(raw) {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}

// ValidationMessage renders a client-facing message for a failed create.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Title" || fe.Field() == "ContentJSON" {
				if fe.Tag() == "required" {
					return "Missing title or contentJson"
				}
			}
		}
		return "Invalid question payload"
	}
	if strings.Contains(err.Error(), "versionId required") {
		return "versionId required"
	}
	return "Invalid question payload"
}
