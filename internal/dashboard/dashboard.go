package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/thruflo/taskdeck/internal/feed"
	"github.com/thruflo/taskdeck/internal/logging"
	"github.com/thruflo/taskdeck/internal/query"
)

// Enhancer post-processes committed view content, e.g. syntax
// highlighting. It returns usable content even when it also reports an
// error.
type Enhancer interface {
	Enhance(content template.HTML) (template.HTML, error)
}

// Dashboard is the engine for one session: it owns the Store, serialises
// events, and keeps the display region in sync with the Store.
type Dashboard struct {
	mu         sync.Mutex
	store      *Store
	source     feed.Source
	renderer   *Renderer
	enhancer   Enhancer
	logger     *logging.Logger
	generation uint64

	// region is the committed display content.
	region template.HTML

	subs   map[int]func(template.HTML)
	nextID int
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithEnhancer sets the post-commit enhancement pass.
func WithEnhancer(e Enhancer) Option {
	return func(d *Dashboard) {
		d.enhancer = e
	}
}

// WithLogger sets the dashboard's logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dashboard) {
		d.logger = l
	}
}

// New creates a Dashboard reading from source and rendering with
// renderer. The initial state is rendered immediately, so View shows the
// loading indicator until the first Load completes.
func New(source feed.Source, renderer *Renderer, opts ...Option) *Dashboard {
	d := &Dashboard{
		store:    NewStore(),
		source:   source,
		renderer: renderer,
		logger:   logging.Default(),
		subs:     make(map[int]func(template.HTML)),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.render()
	return d
}

// View returns the committed display content.
func (d *Dashboard) View() template.HTML {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.region
}

// State returns a copy of the Store.
func (d *Dashboard) State() Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.store
}

// Snapshot returns the committed display content together with the Store
// it was rendered from.
func (d *Dashboard) Snapshot() (template.HTML, Store) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.region, *d.store
}

// Subscribe registers fn to receive every committed view. fn is called with
// the dashboard locked and must not call back into the Dashboard. The
// returned function removes the subscription.
func (d *Dashboard) Subscribe(fn func(template.HTML)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subscribe(fn)
}

// Follow is Subscribe, but fn first receives the current view, so no commit
// between reading the view and subscribing is missed.
func (d *Dashboard) Follow(fn func(template.HTML)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.region)
	return d.subscribe(fn)
}

func (d *Dashboard) subscribe(fn func(template.HTML)) func() {
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Navigate routes fragment and renders.
func (d *Dashboard) Navigate(fragment string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store.applyRoute(fragment)
	d.render()
}

// SetFilter updates one filter criterion and renders. An invalid key or
// value leaves the Store unchanged.
func (d *Dashboard) SetFilter(key query.FilterKey, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	filters, err := d.store.Filters.With(key, value)
	if err != nil {
		return err
	}
	d.store.Filters = filters
	d.render()
	return nil
}

// SetSort applies a click on the column for key and renders.
func (d *Dashboard) SetSort(key string) error {
	k, err := query.ParseSortKey(key)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store.SortKey, d.store.SortDir = query.ToggleSort(d.store.SortKey, d.store.SortDir, k)
	d.render()
	return nil
}

// SetTab selects a detail tab and renders.
func (d *Dashboard) SetTab(tab string) error {
	t, err := ParseTab(tab)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store.Tab = t
	d.render()
	return nil
}

// Load fetches the feed and replaces the task collection. The fetch runs
// without holding the lock so other events are handled meanwhile. If
// another Load starts before this one completes, this one's result is
// discarded. On failure the previous tasks are kept and the error is shown
// with a retry action; the error is also returned.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	d.store.Loading = true
	d.store.Error = ""
	d.render()
	d.mu.Unlock()

	f, fetchErr := d.source.Fetch(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		d.logger.Debug("discarding stale load", "generation", gen, "current", d.generation)
		return nil
	}

	var err error
	d.store.Loading = false
	if fetchErr != nil {
		err = fmt.Errorf("failed to load task data: %w", fetchErr)
		d.store.Error = err.Error()
		d.logger.Warn("load failed", "generation", gen, "error", fetchErr)
	} else {
		d.store.Error = ""
		d.store.PublishedAt = f.PublishedAt
		d.store.Tasks = f.Tasks
		d.logger.Debug("load complete", "generation", gen, "tasks", len(f.Tasks))
	}

	d.store.applyRoute(d.store.Fragment)
	d.render()
	return err
}

// render runs the render loop. Callers hold d.mu.
func (d *Dashboard) render() {
	view, err := d.renderer.Render(d.store)
	if err != nil {
		d.logger.Error("render failed", "page", d.store.Page, "error", err)
		return
	}
	d.region = view

	if d.enhancer != nil {
		enhanced, err := d.enhancer.Enhance(d.region)
		if err != nil {
			d.logger.Warn("highlight failed", "error", err)
		}
		if enhanced != "" {
			d.region = enhanced
		}
	}

	for _, fn := range d.subs {
		fn(d.region)
	}
}
