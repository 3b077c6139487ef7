package live

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/junaikey/livecache/pkg/cache"
	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/models"
	"github.com/junaikey/livecache/pkg/reconcile"
)

// State is where a page is in its lifecycle.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Page keeps the cache of one entity kind consistent with the entity service
// for the scope it was last established with.
type Page[E models.Entity] struct {
	kind       models.Kind[E]
	fetcher    Fetcher[E]
	subscriber Subscriber[E]
	mutator    Mutator[E]
	opts       Options
	log        logger.Logger

	queue    *taskQueue
	loopDone chan struct{}

	// Owned by the run loop.
	cache  *cache.Cache[E]
	rec    *reconcile.Reconciler[E]
	active *Scope
	// lastEvent maps an id to the value of applied after its latest event.
	lastEvent map[string]uint64
	// journals collect what is applied while refreshes are fetching.
	journals []*journal[E]

	// Counts events applied on the run loop.
	applied atomic.Uint64

	// Serializes establishment and teardown.
	establishMu sync.Mutex

	mu        sync.Mutex
	requested *Scope
	cancel    context.CancelFunc
	subs      []Unsubscribe
	state     State
	err       error
	closed    bool
	errs      chan error

	snapshot atomic.Pointer[[]E]
	changes  chan struct{}
}

// New starts a page for kind. The page shows nothing until Establish is called.
func New[E models.Entity](kind models.Kind[E], c Collaborators[E], opts Options) (*Page[E], error) {
	if c.Fetcher == nil || c.Subscriber == nil {
		return nil, fmt.Errorf("page %s needs a fetcher and a subscriber", kind.Table)
	}
	opts = opts.withDefaults()

	p := &Page[E]{
		kind:       kind,
		fetcher:    c.Fetcher,
		subscriber: c.Subscriber,
		mutator:    c.Mutator,
		opts:       opts,
		log:        opts.Logger,
		queue:      newTaskQueue(opts.QueueSize),
		loopDone:   make(chan struct{}),
		cache:      cache.New(kind.Compare()),
		lastEvent:  make(map[string]uint64),
		errs:       make(chan error, len(models.Actions)),
		changes:    make(chan struct{}, 1),
	}
	empty := []E{}
	p.snapshot.Store(&empty)

	go p.run()
	return p, nil
}

func (p *Page[E]) run() {
	defer close(p.loopDone)
	for {
		task, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		task()
	}
}

// Kind returns the entity kind the page shows.
func (p *Page[E]) Kind() models.Kind[E] {
	return p.kind
}

// Establish switches the page to the scope (viewer, f). It closes the previous
// scope's subscriptions, fetches, replaces the cache contents and opens one
// subscription per action. A concurrent Establish supersedes this one, which
// then returns constants.ErrStaleScope.
func (p *Page[E]) Establish(ctx context.Context, viewer models.Viewer, f filter.Filter) error {
	scope := newScope(p.kind.Table, viewer, f)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return constants.ErrPageClosed
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.requested = scope
	p.mu.Unlock()

	p.establishMu.Lock()
	defer p.establishMu.Unlock()

	return p.establish(ctx, scope)
}

// SetViewer re-establishes the page for viewer, keeping the current filter.
func (p *Page[E]) SetViewer(ctx context.Context, viewer models.Viewer) error {
	_, f := p.current()
	return p.Establish(ctx, viewer, f)
}

// SetFilter re-establishes the page with f, keeping the current viewer.
func (p *Page[E]) SetFilter(ctx context.Context, f filter.Filter) error {
	viewer, _ := p.current()
	return p.Establish(ctx, viewer, f)
}

// Reestablish runs a fresh establishment with the current viewer and filter.
// It is the recovery path after a SubscriptionError.
func (p *Page[E]) Reestablish(ctx context.Context) error {
	p.mu.Lock()
	scope := p.requested
	p.mu.Unlock()
	if scope == nil {
		return constants.ErrNoScope
	}
	return p.Establish(ctx, scope.Viewer, scope.Filter)
}

func (p *Page[E]) current() (models.Viewer, filter.Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requested == nil {
		return models.Viewer{}, filter.Filter{}
	}
	return p.requested.Viewer, p.requested.Filter.Clone()
}

func (p *Page[E]) establish(ctx context.Context, scope *Scope) error {
	p.closeSubscriptions()
	p.setState(scope, Loading, nil)
	p.log.Debug("Establishing scope",
		"table", p.kind.Table.String(),
		"scope", scope.ID,
		"viewer", scope.Viewer.ID,
		"filter", scope.Filter.String(),
	)

	entities, err := p.fetcher.Fetch(ctx, *scope)
	if !p.isCurrent(scope) {
		return constants.ErrStaleScope
	}
	if err != nil {
		fe := &FetchError{Table: p.kind.Table, Scope: scope.ID, Err: err}
		p.setState(scope, Failed, fe)
		p.opts.Metrics.ObserveScope(fe)
		p.log.Error("Fetch failed", "table", p.kind.Table.String(), "scope", scope.ID, "error", err.Error())
		return fe
	}

	if err := p.install(scope, entities); err != nil {
		return err
	}

	subs := make([]Unsubscribe, 0, len(models.Actions))
	for _, action := range models.Actions {
		unsub, err := p.subscriber.Subscribe(ctx, action, *scope, p.handler(scope, action))
		if err != nil {
			p.release(subs)
			if !p.isCurrent(scope) {
				return constants.ErrStaleScope
			}
			se := &SubscriptionError{Table: p.kind.Table, Action: action, Scope: scope.ID, Err: err}
			p.setState(scope, Failed, se)
			p.opts.Metrics.ObserveSubscriptionError()
			p.opts.Metrics.ObserveScope(se)
			p.log.Error("Subscribe failed",
				"table", p.kind.Table.String(),
				"action", string(action),
				"scope", scope.ID,
				"error", err.Error(),
			)
			return se
		}
		if unsub != nil {
			subs = append(subs, unsub)
		}
	}

	p.mu.Lock()
	if p.closed || p.requested != scope {
		closed := p.closed
		p.mu.Unlock()
		p.release(subs)
		if closed {
			return constants.ErrPageClosed
		}
		return constants.ErrStaleScope
	}
	p.subs = subs
	p.state = Ready
	p.err = nil
	p.mu.Unlock()

	p.opts.Metrics.ObserveScope(nil)
	p.log.Info("Scope established",
		"table", p.kind.Table.String(),
		"scope", scope.ID,
		"entities", len(p.Snapshot()),
	)
	return nil
}

// install hands fetched entities to the run loop and waits until they are applied.
func (p *Page[E]) install(scope *Scope, entities []E) error {
	done := make(chan error, 1)
	if !p.queue.Enqueue(func() { done <- p.load(scope, entities) }) {
		return constants.ErrPageClosed
	}
	return <-done
}

// load runs on the run loop.
func (p *Page[E]) load(scope *Scope, entities []E) error {
	if !p.isCurrent(scope) {
		return constants.ErrStaleScope
	}
	if p.active != scope {
		p.cache = cache.New(p.kind.Compare())
		p.rec = reconcile.New(p.cache, scope.Predicate(),
			reconcile.WithLogger(p.log),
			reconcile.WithObserver(p.opts.Metrics),
		)
		p.active = scope
		p.lastEvent = make(map[string]uint64)
		p.journals = nil
	}
	if excluded := p.rec.Load(entities); excluded > 0 {
		p.log.Debug("Fetched entities excluded by predicate",
			"table", p.kind.Table.String(),
			"scope", scope.ID,
			"count", excluded,
		)
	}
	p.publish()
	return nil
}

func (p *Page[E]) handler(scope *Scope, action models.Action) Handler[E] {
	return Handler[E]{
		OnEvent: func(ev models.Event[E]) {
			p.queue.Enqueue(func() { p.apply(scope, ev) })
		},
		OnError: func(err error) {
			p.dropped(scope, action, err)
		},
	}
}

// apply runs on the run loop.
func (p *Page[E]) apply(scope *Scope, ev models.Event[E]) {
	if p.active != scope || !p.isCurrent(scope) {
		p.log.Debug("Discarding event of stale scope",
			"table", p.kind.Table.String(),
			"scope", scope.ID,
			"event", ev.String(),
		)
		return
	}
	n := p.applied.Add(1)
	res := p.rec.Apply(ev)
	if res.ID != "" {
		p.lastEvent[res.ID] = n
	}
	p.commit(ev, res)
}

// commit runs on the run loop after ev was reconciled.
func (p *Page[E]) commit(ev models.Event[E], res reconcile.Result) {
	if res.Outcome != reconcile.Dropped {
		for _, j := range p.journals {
			j.events = append(j.events, ev)
		}
	}
	if res.Changed() {
		p.publish()
	}
}

// publish runs on the run loop.
func (p *Page[E]) publish() {
	snap := p.cache.Snapshot()
	p.snapshot.Store(&snap)
	p.opts.Metrics.SetCacheSize(len(snap))

	select {
	case p.changes <- struct{}{}:
	default:
	}
}

func (p *Page[E]) dropped(scope *Scope, action models.Action, err error) {
	se := &SubscriptionError{Table: p.kind.Table, Action: action, Scope: scope.ID, Err: err}

	p.mu.Lock()
	if p.closed || p.requested != scope {
		p.mu.Unlock()
		p.log.Debug("Ignoring error of stale subscription", "scope", scope.ID, "error", err.Error())
		return
	}
	p.state = Failed
	p.err = se
	select {
	case p.errs <- se:
	default:
	}
	p.mu.Unlock()

	p.opts.Metrics.ObserveSubscriptionError()
	p.log.Error("Subscription dropped",
		"table", p.kind.Table.String(),
		"action", string(action),
		"scope", scope.ID,
		"error", err.Error(),
	)
}

func (p *Page[E]) isCurrent(scope *Scope) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.requested == scope
}

func (p *Page[E]) setState(scope *Scope, state State, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.requested != scope {
		return
	}
	p.state = state
	p.err = err
}

// closeSubscriptions releases the subscriptions of the established scope.
func (p *Page[E]) closeSubscriptions() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()
	p.release(subs)
}

func (p *Page[E]) release(subs []Unsubscribe) {
	for _, unsub := range subs {
		if err := unsub(); err != nil {
			p.log.Warn("Unsubscribe failed", "table", p.kind.Table.String(), "error", err.Error())
		}
	}
}

// Refresh fetches the current scope again without re-subscribing. The result
// replaces the cache only if the scope is still current when it arrives.
// Changes applied while the fetch was in flight are applied again on top of it.
func (p *Page[E]) Refresh(ctx context.Context) error {
	p.mu.Lock()
	scope, closed := p.requested, p.closed
	p.mu.Unlock()
	if closed {
		return constants.ErrPageClosed
	}
	if scope == nil {
		return constants.ErrNoScope
	}

	j, err := p.beginRefresh(scope)
	if err != nil {
		return err
	}

	entities, err := p.fetcher.Fetch(ctx, *scope)
	if !p.isCurrent(scope) {
		p.endRefresh(j, nil, false)
		return constants.ErrStaleScope
	}
	if err != nil {
		p.endRefresh(j, nil, false)
		fe := &FetchError{Table: p.kind.Table, Scope: scope.ID, Err: err}
		p.opts.Metrics.ObserveScope(fe)
		p.log.Warn("Refresh failed", "table", p.kind.Table.String(), "scope", scope.ID, "error", err.Error())
		return fe
	}
	if err := p.endRefresh(j, entities, true); err != nil {
		return err
	}
	p.opts.Metrics.ObserveScope(nil)
	return nil
}

// journal records the changes applied to one scope during a refresh.
type journal[E models.Entity] struct {
	scope  *Scope
	events []models.Event[E]
}

func (p *Page[E]) beginRefresh(scope *Scope) (*journal[E], error) {
	done := make(chan error, 1)
	j := &journal[E]{scope: scope}
	ok := p.queue.Enqueue(func() {
		if p.active != scope || !p.isCurrent(scope) {
			done <- constants.ErrStaleScope
			return
		}
		p.journals = append(p.journals, j)
		done <- nil
	})
	if !ok {
		return nil, constants.ErrPageClosed
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return j, nil
}

// endRefresh stops j. When install is set, entities replace the cache and the
// journaled changes are applied again in arrival order.
func (p *Page[E]) endRefresh(j *journal[E], entities []E, install bool) error {
	done := make(chan error, 1)
	ok := p.queue.Enqueue(func() {
		p.journals = slices.DeleteFunc(p.journals, func(other *journal[E]) bool { return other == j })
		if !install {
			done <- nil
			return
		}
		if p.active != j.scope || !p.isCurrent(j.scope) {
			done <- constants.ErrStaleScope
			return
		}
		p.rec.Load(entities)
		for _, ev := range j.events {
			p.rec.Apply(ev)
		}
		p.publish()
		done <- nil
	})
	if !ok {
		return constants.ErrPageClosed
	}
	return <-done
}

// Snapshot returns the ordered entities currently shown. The slice belongs to
// the caller.
func (p *Page[E]) Snapshot() []E {
	return slices.Clone(*p.snapshot.Load())
}

// Get looks id up in the latest snapshot.
func (p *Page[E]) Get(id string) (E, bool) {
	for _, e := range *p.snapshot.Load() {
		if e.GetID() == id {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// Changes fires after the cache changed. Signals coalesce; receivers should
// read Snapshot after each one. The channel is closed by Close.
func (p *Page[E]) Changes() <-chan struct{} {
	return p.changes
}

// Errors delivers subscription drops of the current scope. Errors returned by
// Establish are not repeated here. The channel is closed by Close.
func (p *Page[E]) Errors() <-chan error {
	return p.errs
}

// State reports the lifecycle state and the error that caused Failed.
func (p *Page[E]) State() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.err
}

// Scope returns the scope last requested.
func (p *Page[E]) Scope() (Scope, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requested == nil {
		return Scope{}, false
	}
	return *p.requested, true
}

// Close releases the page's subscriptions and stops its run loop. Tasks
// already queued are drained first. Close is idempotent.
func (p *Page[E]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.establishMu.Lock()
	p.closeSubscriptions()
	p.establishMu.Unlock()

	p.queue.Close()
	<-p.loopDone

	p.mu.Lock()
	p.state = Closed
	p.err = nil
	close(p.errs)
	p.mu.Unlock()
	close(p.changes)

	p.log.Debug("Page closed", "table", p.kind.Table.String())
	return nil
}
