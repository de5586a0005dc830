package dashboard

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thruflo/taskdeck/internal/feed"
	"github.com/thruflo/taskdeck/internal/logging"
	"github.com/thruflo/taskdeck/internal/markdown"
	"github.com/thruflo/taskdeck/internal/query"
	"github.com/thruflo/taskdeck/internal/task"
	"github.com/thruflo/taskdeck/internal/testutil"
)

var testNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func newTestRenderer(t *testing.T, md Markdown) *Renderer {
	t.Helper()
	if md == nil {
		md = markdown.NewConverter()
	}
	r, err := NewRenderer(md, Options{
		Now:    func() time.Time { return testNow },
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	return r
}

func staticSource(f *task.Feed) feed.Source {
	return feed.SourceFunc(func(ctx context.Context) (*task.Feed, error) {
		return f, nil
	})
}

func newTestDashboard(t *testing.T, src feed.Source, opts ...Option) *Dashboard {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(src, newTestRenderer(t, nil), opts...)
}

func loadedDashboard(t *testing.T) *Dashboard {
	t.Helper()
	d := newTestDashboard(t, staticSource(testutil.SampleFeed()))
	require.NoError(t, d.Load(context.Background()))
	return d
}

func TestNew_ShowsLoading(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t, staticSource(testutil.SampleFeed()))
	assert.Contains(t, string(d.View()), "Loading tasks")

	s := d.State()
	assert.True(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Equal(t, PageOverview, s.Page)
	assert.Equal(t, query.SortCreated, s.SortKey)
	assert.Equal(t, query.Desc, s.SortDir)
	assert.Equal(t, query.DefaultFilters(), s.Filters)
}

func TestLoad_Success(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)

	s := d.State()
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Equal(t, testutil.SamplePublishedAt, s.PublishedAt)
	assert.Len(t, s.Tasks, 5)

	view := string(d.View())
	assert.NotContains(t, view, "Loading tasks")
	assert.Contains(t, view, "Total Tasks")
	assert.Contains(t, view, "Add login flow")
}

func TestLoad_EmptyFeed(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t, staticSource(&task.Feed{Tasks: []task.Task{}}))
	require.NoError(t, d.Load(context.Background()))
	assert.Contains(t, string(d.View()), "No tasks match your filters.")
}

// A failed reload keeps the previous tasks and reports the HTTP status.
func TestLoad_HTTPFailureKeepsTasks(t *testing.T) {
	t.Parallel()

	body := testutil.SampleFeedJSON(t)
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}))
	defer server.Close()

	d := newTestDashboard(t, feed.NewHTTPSource(server.URL))

	ctx, cancel := testutil.ShortOperationContext(t)
	defer cancel()
	require.NoError(t, d.Load(ctx))
	require.Len(t, d.State().Tasks, 5)

	fail.Store(true)
	err := d.Load(ctx)
	require.Error(t, err)

	var statusErr *feed.StatusError
	assert.True(t, errors.As(err, &statusErr))

	s := d.State()
	assert.False(t, s.Loading)
	assert.Equal(t, "failed to load task data: HTTP 500 Internal Server Error", s.Error)
	assert.Len(t, s.Tasks, 5, "tasks from the previous load are kept")

	view := string(d.View())
	assert.Contains(t, view, "500")
	assert.Contains(t, view, `data-action="reload"`)
	assert.NotContains(t, view, "Total Tasks")

	fail.Store(false)
	require.NoError(t, d.Load(ctx))
	assert.Empty(t, d.State().Error)
	assert.Contains(t, string(d.View()), "Total Tasks")
}

func TestLoad_MalformedFeed(t *testing.T) {
	t.Parallel()

	src := feed.SourceFunc(func(ctx context.Context) (*task.Feed, error) {
		return task.Decode(strings.NewReader(`{"tasks": [{"id": "A", "status": "DONE"}]}`))
	})
	d := newTestDashboard(t, src)

	err := d.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, task.ErrInvalidFeed))
	assert.Contains(t, d.State().Error, "failed to load task data")
}

func TestLoad_MalformedRefreshKeepsTasks(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{`null`, `{"tasks": []} trailing garbage`} {
		t.Run(payload, func(t *testing.T) {
			t.Parallel()

			body := testutil.SampleFeedJSON(t)
			var broken atomic.Bool
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if broken.Load() {
					w.Write([]byte(payload))
					return
				}
				w.Write(body)
			}))
			defer server.Close()

			d := newTestDashboard(t, feed.NewHTTPSource(server.URL))

			ctx, cancel := testutil.ShortOperationContext(t)
			defer cancel()
			require.NoError(t, d.Load(ctx))
			require.Len(t, d.State().Tasks, 5)

			broken.Store(true)
			err := d.Load(ctx)
			require.Error(t, err)
			assert.ErrorIs(t, err, task.ErrInvalidFeed)

			s := d.State()
			assert.Contains(t, s.Error, "failed to load task data")
			assert.Len(t, s.Tasks, 5, "tasks from the previous load are kept")
			assert.Equal(t, testutil.SamplePublishedAt, s.PublishedAt)
		})
	}
}

// blockingSource hands out feeds in call order; the first call blocks until
// release is closed.
type blockingSource struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	feeds   []*task.Feed
}

func (b *blockingSource) Fetch(ctx context.Context) (*task.Feed, error) {
	b.mu.Lock()
	n := b.calls
	b.calls++
	b.mu.Unlock()

	if n == 0 {
		close(b.started)
		<-b.release
	}
	return b.feeds[n], nil
}

func TestLoad_StaleCompletionDiscarded(t *testing.T) {
	t.Parallel()

	older := &task.Feed{PublishedAt: "old", Tasks: []task.Task{{ID: "OLD", Status: task.StatusOpen}}}
	newer := &task.Feed{PublishedAt: "new", Tasks: []task.Task{{ID: "NEW", Status: task.StatusOpen}}}
	src := &blockingSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		feeds:   []*task.Feed{older, newer},
	}
	d := newTestDashboard(t, src)

	done := make(chan error, 1)
	go func() { done <- d.Load(context.Background()) }()
	<-src.started

	require.NoError(t, d.Load(context.Background()))
	assert.Equal(t, "new", d.State().PublishedAt)

	close(src.release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first load did not complete")
	}

	s := d.State()
	assert.Equal(t, "new", s.PublishedAt)
	testutil.AssertTaskIDs(t, []string{"NEW"}, s.Tasks)
	assert.False(t, s.Loading)
}

func TestLoad_ReroutesAfterLoad(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)
	d.Navigate("#/task/T-102")
	require.NoError(t, d.SetTab(string(TabReview)))

	require.NoError(t, d.Load(context.Background()))

	s := d.State()
	assert.Equal(t, PageDetail, s.Page)
	assert.Equal(t, "T-102", s.TaskID)
	assert.Equal(t, TabChat, s.Tab)
}

func TestNavigate(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)

	d.Navigate("#/task/T-101")
	view := string(d.View())
	assert.Contains(t, view, "<h1>Add login flow</h1>")
	assert.Contains(t, view, `class="tab active" data-action="tab" data-tab="chat"`)

	d.Navigate("#/task/NOPE")
	view = string(d.View())
	assert.Contains(t, view, "Task not found")
	assert.Contains(t, view, `href="#/"`)

	d.Navigate("#/")
	assert.Contains(t, string(d.View()), "Total Tasks")
	assert.Empty(t, d.State().TaskID)
}

func TestNavigate_WhileLoading(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t, staticSource(testutil.SampleFeed()))
	d.Navigate("#/task/T-103")
	assert.Contains(t, string(d.View()), "Loading tasks", "loading wins over content")

	require.NoError(t, d.Load(context.Background()))
	assert.Contains(t, string(d.View()), "<h1>Fix flaky test</h1>")
}

func TestSetFilter(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)

	require.NoError(t, d.SetFilter(query.FilterPhase, "CLOSED"))
	view := string(d.View())
	assert.Equal(t, 1, strings.Count(view, `class="task-row"`))
	assert.Contains(t, view, "Fix flaky test")

	err := d.SetFilter(query.FilterStatus, "DONE")
	assert.ErrorIs(t, err, query.ErrInvalidFilter)
	assert.Equal(t, query.All, d.State().Filters.Status)
	assert.Equal(t, "CLOSED", d.State().Filters.Phase)
}

func TestSetSort(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)

	require.NoError(t, d.SetSort("duration"))
	s := d.State()
	assert.Equal(t, query.SortDuration, s.SortKey)
	assert.Equal(t, query.Asc, s.SortDir)

	require.NoError(t, d.SetSort("duration"))
	assert.Equal(t, query.Desc, d.State().SortDir)

	view := string(d.View())
	assert.Contains(t, view, `data-key="duration">Duration <span class="arrow">▼</span>`)
	assert.Contains(t, view, `data-key="created">Created <span class="arrow">↕</span>`)

	err := d.SetSort("priority")
	assert.ErrorIs(t, err, query.ErrInvalidSortKey)
	assert.Equal(t, query.SortDuration, d.State().SortKey)
}

func TestSetTab(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)
	d.Navigate("#/task/T-101")

	require.NoError(t, d.SetTab("handoffs"))
	assert.Equal(t, TabHandoffs, d.State().Tab)
	assert.Contains(t, string(d.View()), `class="timeline"`)

	err := d.SetTab("files")
	assert.ErrorIs(t, err, ErrInvalidTab)
	assert.Equal(t, TabHandoffs, d.State().Tab)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)

	var got []template.HTML
	unsubscribe := d.Subscribe(func(view template.HTML) {
		got = append(got, view)
	})

	d.Navigate("#/task/T-101")
	require.Len(t, got, 1)
	assert.Equal(t, d.View(), got[0])

	unsubscribe()
	d.Navigate("#/")
	assert.Len(t, got, 1)
}

type fakeEnhancer struct {
	err error
}

func (f fakeEnhancer) Enhance(content template.HTML) (template.HTML, error) {
	if f.err != nil {
		return content, f.err
	}
	return content + "<!-- enhanced -->", nil
}

func TestRenderLoop_Enhancer(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t, staticSource(testutil.SampleFeed()), WithEnhancer(fakeEnhancer{}))
	require.NoError(t, d.Load(context.Background()))
	assert.True(t, strings.HasSuffix(string(d.View()), "<!-- enhanced -->"))

	failing := newTestDashboard(t, staticSource(testutil.SampleFeed()), WithEnhancer(fakeEnhancer{err: errors.New("lexer exploded")}))
	require.NoError(t, failing.Load(context.Background()))
	assert.Contains(t, string(failing.View()), "Total Tasks", "content stays committed when highlighting fails")
}

func TestRenderLoop_WithHighlighter(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t, staticSource(testutil.SampleFeed()), WithEnhancer(markdown.NewHighlighter("github")))
	require.NoError(t, d.Load(context.Background()))
	d.Navigate("#/task/T-102")
	require.NoError(t, d.SetTab(string(TabImpl)))

	view := string(d.View())
	assert.Contains(t, view, `class="chroma"`)
	assert.NotContains(t, view, `class="language-go"`)
}

func TestConcurrentEvents(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				d.Navigate("#/task/T-101")
			case 1:
				_ = d.SetSort("title")
			case 2:
				_ = d.SetFilter(query.FilterSearch, "fix")
			case 3:
				_ = d.Load(context.Background())
			}
		}(i)
	}
	wg.Wait()

	s := d.State()
	assert.False(t, s.Loading)
	assert.NotEmpty(t, d.View())
}

func TestFollow_DeliversCurrentView(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)

	var got []template.HTML
	stop := d.Follow(func(view template.HTML) {
		got = append(got, view)
	})
	require.Len(t, got, 1)
	assert.Equal(t, d.View(), got[0])

	d.Navigate("#/task/T-102")
	require.Len(t, got, 2)
	assert.Contains(t, string(got[1]), "T-102")

	stop()
	d.Navigate("#/")
	assert.Len(t, got, 2)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	d := loadedDashboard(t)
	d.Navigate("#/task/T-101")

	view, state := d.Snapshot()
	assert.Equal(t, d.View(), view)
	assert.Equal(t, PageDetail, state.Page)
	assert.Equal(t, "T-101", state.TaskID)
}
