package question

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/question-bank/internal/auth"
	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

// memStore mimics the transactional store semantics in memory.
type memStore struct {
	mu        sync.Mutex
	questions map[pgtype.UUID]queries.Question
	versions  map[pgtype.UUID]queries.QuestionVersion
	now       time.Time

	listCalls int
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{
		questions: map[pgtype.UUID]queries.Question{},
		versions:  map[pgtype.UUID]queries.QuestionVersion{},
		now:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func (m *memStore) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *memStore) ListPublished(_ context.Context, limit, offset int64) ([]queries.QuestionVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}

	var out []queries.QuestionVersion
	for _, v := range m.versions {
		if v.IsPublished {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PublishedAt.Time.Equal(b.PublishedAt.Time) {
			return a.PublishedAt.Time.After(b.PublishedAt.Time)
		}
		return bytes.Compare(a.ID.Bytes[:], b.ID.Bytes[:]) < 0
	})

	if offset >= int64(len(out)) {
		return []queries.QuestionVersion{}, nil
	}
	end := offset + limit
	if end > int64(len(out)) {
		end = int64(len(out))
	}
	return out[offset:end], nil
}

func (m *memStore) Create(_ context.Context, p queries.CreateQuestionWithVersionParams) (queries.CreateQuestionWithVersionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := queries.Question{
		ID:         newID(),
		Slug:       p.Slug,
		Discipline: p.Discipline,
		Difficulty: p.Difficulty,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  ts(m.now),
	}
	v := queries.QuestionVersion{
		ID:            newID(),
		QuestionID:    q.ID,
		VersionNumber: 1,
		Title:         p.Title,
		ContentJSON:   p.ContentJSON,
		OptionsJSON:   p.OptionsJSON,
		Explanation:   p.Explanation,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     ts(m.now),
	}
	m.questions[q.ID] = q
	m.versions[v.ID] = v
	return queries.CreateQuestionWithVersionRow{Question: q, Version: v}, nil
}

// addVersion appends an unpublished version to an existing question.
func (m *memStore) addVersion(questionID string, title string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	qid, _ := queries.ParseUUID(questionID)
	var next int32 = 1
	for _, v := range m.versions {
		if v.QuestionID == qid && v.VersionNumber >= next {
			next = v.VersionNumber + 1
		}
	}
	v := queries.QuestionVersion{
		ID:            newID(),
		QuestionID:    qid,
		VersionNumber: next,
		Title:         title,
		ContentJSON:   []byte(`{}`),
		CreatedAt:     ts(m.now),
	}
	m.versions[v.ID] = v
	return queries.FormatUUID(v.ID)
}

func (m *memStore) Publish(_ context.Context, questionID, versionID string) (queries.PublishVersionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qid, err := queries.ParseUUID(questionID)
	if err != nil {
		return queries.PublishVersionRow{}, queries.ErrNotFound
	}
	vid, err := queries.ParseUUID(versionID)
	if err != nil {
		return queries.PublishVersionRow{}, queries.ErrNotFound
	}
	v, ok := m.versions[vid]
	if !ok || v.QuestionID != qid {
		return queries.PublishVersionRow{}, queries.ErrNotFound
	}

	v.IsPublished = true
	if !v.PublishedAt.Valid {
		v.PublishedAt = ts(m.now)
	}
	m.versions[vid] = v
	for id, other := range m.versions {
		if other.QuestionID == qid && id != vid {
			other.IsPublished = false
			m.versions[id] = other
		}
	}

	q := m.questions[qid]
	q.ActiveVersionID = vid
	m.questions[qid] = q
	return queries.PublishVersionRow{PublishedVersion: v, Question: q}, nil
}

// countingVerifier accepts tokens listed in principals.
type countingVerifier struct {
	principals map[string]auth.Principal
	err        error
	calls      int
}

func (v *countingVerifier) Verify(_ context.Context, credential string) (auth.Principal, error) {
	v.calls++
	if v.err != nil {
		return "", v.err
	}
	p, ok := v.principals[credential]
	if !ok {
		return "", auth.ErrInvalidCredential
	}
	return p, nil
}

type countingChecker struct {
	entitled map[auth.Principal]bool
	err      error
	calls    int
}

func (c *countingChecker) HasActiveEntitlement(_ context.Context, p auth.Principal) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.entitled[p], nil
}

type countingReader struct {
	versions []Version
	err      error
	calls    int
	last     PageRequest
}

func (r *countingReader) ListPublished(_ context.Context, req PageRequest) ([]Version, error) {
	r.calls++
	r.last = req
	return r.versions, r.err
}

type recordingFeed struct {
	mu     sync.Mutex
	events []PublishedEvent
	err    error
}

func (f *recordingFeed) PublishQuestion(_ context.Context, evt PublishedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return f.err
}
