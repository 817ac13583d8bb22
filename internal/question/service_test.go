package question

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/question-bank/internal/db/queries"
)

func strPtr(s string) *string { return &s }

func createAndPublish(t *testing.T, svc *Service, store *memStore, title string) Version {
	t.Helper()
	q, v, err := svc.CreateQuestion(context.Background(), CreateRequest{
		Title:       title,
		ContentJSON: json.RawMessage(`{"stem":"` + title + `"}`),
	})
	require.NoError(t, err)
	published, _, err := svc.PublishVersion(context.Background(), q.ID, v.ID)
	require.NoError(t, err)
	store.advance(time.Minute)
	return published
}

func TestListPublishedOrdersNewestFirst(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, zerolog.Nop())
	ctx := context.Background()

	v1 := createAndPublish(t, svc, store, "T1")
	v2 := createAndPublish(t, svc, store, "T2")
	v3 := createAndPublish(t, svc, store, "T3")
	_, _, err := svc.CreateQuestion(ctx, CreateRequest{Title: "draft", ContentJSON: json.RawMessage(`{}`)})
	require.NoError(t, err)

	got, err := svc.ListPublished(ctx, PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{v3.ID, v2.ID, v1.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	for i, v := range got {
		assert.True(t, v.IsPublished)
		require.NotNil(t, v.PublishedAt)
		if i > 0 {
			assert.False(t, v.PublishedAt.After(*got[i-1].PublishedAt), "published_at must not increase")
		}
	}
}

func TestListPublishedPagesAreDisjoint(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, zerolog.Nop())
	for i := 0; i < 7; i++ {
		createAndPublish(t, svc, store, "q")
	}

	seen := map[string]bool{}
	total := 0
	for page := 1; page <= 4; page++ {
		got, err := svc.ListPublished(context.Background(), PageRequest{Page: page, PageSize: 3})
		require.NoError(t, err)
		for _, v := range got {
			assert.False(t, seen[v.ID], "version %s on two pages", v.ID)
			seen[v.ID] = true
		}
		total += len(got)
	}
	assert.Equal(t, 7, total)
}

func TestListPublishedStoreError(t *testing.T) {
	store := newMemStore()
	store.listErr = errors.New("relation does not exist")
	svc := NewService(store, nil, nil, zerolog.Nop())

	_, err := svc.ListPublished(context.Background(), PageRequest{Page: 1, PageSize: 20})
	assert.ErrorIs(t, err, ErrContentLookupFailed)
	assert.ErrorIs(t, err, store.listErr)
}

func TestListPublishedUsesCache(t *testing.T) {
	_, client := newTestRedis(t)
	store := newMemStore()
	svc := NewService(store, NewCache(client, time.Minute), nil, zerolog.Nop())
	ctx := context.Background()
	createAndPublish(t, svc, store, "T1")

	req := PageRequest{Page: 1, PageSize: 20}
	first, err := svc.ListPublished(ctx, req)
	require.NoError(t, err)
	second, err := svc.ListPublished(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, store.listCalls)

	createAndPublish(t, svc, store, "T2")
	third, err := svc.ListPublished(ctx, req)
	require.NoError(t, err)
	assert.Len(t, third, 2, "publish must invalidate cached pages")
	assert.Equal(t, 2, store.listCalls)
}

func TestListPublishedFallsThroughBrokenCache(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, brokenCache{}, nil, zerolog.Nop())
	createAndPublish(t, svc, store, "T1")

	got, err := svc.ListPublished(context.Background(), PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, PageRequest) ([]Version, int64, bool, error) {
	return nil, 0, false, errors.New("redis down")
}
func (brokenCache) Set(context.Context, int64, PageRequest, []Version) error {
	return errors.New("redis down")
}
func (brokenCache) Invalidate(context.Context) error { return errors.New("redis down") }

type blockingStore struct {
	*memStore
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingStore) ListPublished(ctx context.Context, limit, offset int64) ([]queries.QuestionVersion, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
	}
	return b.memStore.ListPublished(ctx, limit, offset)
}

func TestListPublishedCollapsesConcurrentReads(t *testing.T) {
	store := &blockingStore{memStore: newMemStore(), release: make(chan struct{}), started: make(chan struct{})}
	svc := NewService(store, nil, nil, zerolog.Nop())
	req := PageRequest{Page: 1, PageSize: 20}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ListPublished(context.Background(), req)
			assert.NoError(t, err)
		}()
	}
	<-store.started
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Less(t, store.listCalls, 5)
}

func TestListPublishedSharedReadSurvivesCallerCancel(t *testing.T) {
	store := &blockingStore{memStore: newMemStore(), release: make(chan struct{}), started: make(chan struct{})}
	svc := NewService(store, nil, nil, zerolog.Nop())
	createAndPublish(t, svc, store.memStore, "T1")
	req := PageRequest{Page: 1, PageSize: 20}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.ListPublished(ctxA, req)
		errA <- err
	}()
	<-store.started

	type result struct {
		versions []Version
		err      error
	}
	resB := make(chan result, 1)
	go func() {
		v, err := svc.ListPublished(context.Background(), req)
		resB <- result{versions: v, err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, ErrContentLookupFailed)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(store.release)
	select {
	case res := <-resB:
		require.NoError(t, res.err)
		assert.Len(t, res.versions, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("live caller did not return")
	}
}

func TestListPublishedSharedReadHasOwnTimeout(t *testing.T) {
	store := &blockingStore{memStore: newMemStore(), release: make(chan struct{}), started: make(chan struct{})}
	svc := NewService(store, nil, nil, zerolog.Nop()).WithReadTimeout(20 * time.Millisecond)

	_, err := svc.ListPublished(context.Background(), PageRequest{Page: 1, PageSize: 20})
	assert.ErrorIs(t, err, ErrContentLookupFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreateQuestionDefaultsAndDraft(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, zerolog.Nop())

	q, v, err := svc.CreateQuestion(context.Background(), CreateRequest{
		Slug:        strPtr(""),
		Title:       "  Capital of France  ",
		ContentJSON: json.RawMessage(`{"stem":"?"}`),
		CreatedByID: strPtr("0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"),
	})
	require.NoError(t, err)
	assert.Equal(t, DifficultyMedium, q.Difficulty)
	assert.Nil(t, q.Slug)
	require.NotNil(t, q.CreatedBy)
	assert.Equal(t, "0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d", *q.CreatedBy)
	assert.Equal(t, int32(1), v.VersionNumber)
	assert.False(t, v.IsPublished)
	assert.Nil(t, v.PublishedAt)
	assert.Equal(t, "Capital of France", v.Title)
	assert.Equal(t, q.ID, v.QuestionID)
}

func TestCreateQuestionValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil, zerolog.Nop())
	cases := map[string]struct {
		req     CreateRequest
		message string
	}{
		"missing title":   {req: CreateRequest{ContentJSON: json.RawMessage(`{}`)}, message: "Missing title or contentJson"},
		"missing content": {req: CreateRequest{Title: "t"}, message: "Missing title or contentJson"},
		"null content":    {req: CreateRequest{Title: "t", ContentJSON: json.RawMessage(`null`)}, message: "Missing title or contentJson"},
		"empty content":   {req: CreateRequest{Title: "t", ContentJSON: json.RawMessage(`""`)}, message: "Missing title or contentJson"},
		"false content":   {req: CreateRequest{Title: "t", ContentJSON: json.RawMessage(`false`)}, message: "Missing title or contentJson"},
		"zero content":    {req: CreateRequest{Title: "t", ContentJSON: json.RawMessage(`0`)}, message: "Missing title or contentJson"},
		"bad difficulty":  {req: CreateRequest{Title: "t", ContentJSON: json.RawMessage(`{}`), Difficulty: "EXTREME"}, message: "Invalid question payload"},
		"bad creator":     {req: CreateRequest{Title: "t", ContentJSON: json.RawMessage(`{}`), CreatedByID: strPtr("nope")}, message: "Invalid question payload"},
		"bad options":     {req: CreateRequest{Title: "t", ContentJSON: json.RawMessage(`{}`), OptionsJSON: json.RawMessage(`{`)}, message: "Invalid question payload"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.CreateQuestion(context.Background(), tc.req)
			require.ErrorIs(t, err, ErrValidationFailed)
			assert.Equal(t, tc.message, ValidationMessage(err))
		})
	}
}

func TestCreateQuestionLowercaseDifficulty(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil, zerolog.Nop())
	q, _, err := svc.CreateQuestion(context.Background(), CreateRequest{
		Title: "t", ContentJSON: json.RawMessage(`{}`), Difficulty: "hard",
	})
	require.NoError(t, err)
	assert.Equal(t, DifficultyHard, q.Difficulty)
}

func TestPublishVersionIsIdempotent(t *testing.T) {
	store := newMemStore()
	feed := &recordingFeed{}
	svc := NewService(store, nil, feed, zerolog.Nop())
	ctx := context.Background()

	q, v, err := svc.CreateQuestion(ctx, CreateRequest{Title: "t", ContentJSON: json.RawMessage(`{}`)})
	require.NoError(t, err)

	first, parent, err := svc.PublishVersion(ctx, q.ID, v.ID)
	require.NoError(t, err)
	require.NotNil(t, first.PublishedAt)
	require.NotNil(t, parent.ActiveVersionID)
	assert.Equal(t, v.ID, *parent.ActiveVersionID)

	store.advance(time.Hour)
	second, _, err := svc.PublishVersion(ctx, q.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, first.PublishedAt.Equal(*second.PublishedAt))

	got, err := svc.ListPublished(ctx, PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.Len(t, feed.events, 2)
	assert.Equal(t, v.ID, feed.events[0].VersionID)
	assert.Equal(t, q.ID, feed.events[0].QuestionID)
}

func TestPublishVersionSupersedesSiblings(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, zerolog.Nop())
	ctx := context.Background()

	q, v1, err := svc.CreateQuestion(ctx, CreateRequest{Title: "v1", ContentJSON: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, _, err = svc.PublishVersion(ctx, q.ID, v1.ID)
	require.NoError(t, err)

	v2 := store.addVersion(q.ID, "v2")
	store.advance(time.Minute)
	_, parent, err := svc.PublishVersion(ctx, q.ID, v2)
	require.NoError(t, err)
	assert.Equal(t, v2, *parent.ActiveVersionID)

	got, err := svc.ListPublished(ctx, PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, v2, got[0].ID)
}

func TestPublishVersionErrors(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil, zerolog.Nop())
	ctx := context.Background()

	qa, _, err := svc.CreateQuestion(ctx, CreateRequest{Title: "a", ContentJSON: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, vb, err := svc.CreateQuestion(ctx, CreateRequest{Title: "b", ContentJSON: json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, _, err = svc.PublishVersion(ctx, qa.ID, vb.ID)
	assert.ErrorIs(t, err, ErrNotFound, "version of another question")

	_, _, err = svc.PublishVersion(ctx, qa.ID, "  ")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, _, err = svc.PublishVersion(ctx, qa.ID, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishVersionSurvivesFeedFailure(t *testing.T) {
	store := newMemStore()
	feed := &recordingFeed{err: errors.New("redis down")}
	svc := NewService(store, brokenCache{}, feed, zerolog.Nop())
	ctx := context.Background()

	q, v, err := svc.CreateQuestion(ctx, CreateRequest{Title: "t", ContentJSON: json.RawMessage(`{}`)})
	require.NoError(t, err)
	published, _, err := svc.PublishVersion(ctx, q.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, published.IsPublished)
}
