package reconcile

import (
	"fmt"

	"github.com/junaikey/livecache/pkg/cache"
	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/models"
)

// Outcome is the effect one event had on the cache.
type Outcome int

const (
	// Inserted means the entity was added.
	Inserted Outcome = iota + 1
	// Replaced means the stored attributes were overwritten.
	Replaced
	// Removed means the entity was evicted or deleted.
	Removed
	// Ignored means the event did not concern this scope, or removed an absent id.
	Ignored
	// Dropped means the event was malformed.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	case Removed:
		return "removed"
	case Ignored:
		return "ignored"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Result reports what Apply did.
type Result struct {
	Outcome Outcome
	ID      string
	// Err is a *MalformedEventError when Outcome is Dropped.
	Err error
}

// Changed reports whether the cache contents changed.
func (r Result) Changed() bool {
	switch r.Outcome {
	case Inserted, Replaced, Removed:
		return true
	}
	return false
}

// Observer is told about every reconciled event.
type Observer interface {
	ObserveEvent(action models.Action, outcome Outcome)
}

type Option func(*options)

type options struct {
	logger   logger.Logger
	observer Observer
}

// WithLogger sets where dropped events are logged.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver sets the observer notified after each event.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// Reconciler merges events into one cache under one predicate.
// It must only be used from the goroutine that owns the cache.
type Reconciler[E models.Entity] struct {
	cache     *cache.Cache[E]
	predicate filter.Predicate
	logger    logger.Logger
	observer  Observer
}

func New[E models.Entity](c *cache.Cache[E], predicate filter.Predicate, opts ...Option) *Reconciler[E] {
	o := options{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Reconciler[E]{
		cache:     c,
		predicate: predicate,
		logger:    o.logger,
		observer:  o.observer,
	}
}

// Predicate returns the predicate the reconciler was bound to.
func (r *Reconciler[E]) Predicate() filter.Predicate {
	return r.predicate
}

// Load replaces the cache contents with the entities the predicate includes and returns how
// many were left out. Fetchers should already have filtered; this keeps the invariant when
// they did not.
func (r *Reconciler[E]) Load(entities []E) int {
	kept := make([]E, 0, len(entities))
	for _, e := range entities {
		if e.GetID() == "" {
			r.logger.Warn("Dropping fetched entity without id")
			continue
		}
		if r.predicate.Includes(e) {
			kept = append(kept, e)
		}
	}
	r.cache.ReplaceAll(kept)
	return len(entities) - len(kept)
}

// Apply reconciles one event into the cache.
func (r *Reconciler[E]) Apply(ev models.Event[E]) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = r.drop(ev, ev.ID, fmt.Errorf("%w: %v", constants.ErrUndecodable, p))
		}
		if r.observer != nil {
			r.observer.ObserveEvent(ev.Action, res.Outcome)
		}
	}()

	id, err := validate(ev)
	if err != nil {
		return r.drop(ev, id, err)
	}

	switch ev.Action {
	case models.CreateAction:
		if !r.predicate.Includes(ev.Entity) {
			return Result{Outcome: Ignored, ID: id}
		}
		return r.upsert(ev.Entity)
	case models.UpdateAction:
		if !r.predicate.Includes(ev.Entity) {
			return r.remove(id)
		}
		return r.upsert(ev.Entity)
	default:
		return r.remove(id)
	}
}

// validate returns the id the event concerns, or why it cannot be applied.
func validate[E models.Entity](ev models.Event[E]) (string, error) {
	if ev.Err != nil {
		return ev.ID, ev.Err
	}
	if !ev.Action.Valid() {
		return ev.ID, constants.ErrUnknownAction
	}
	if !ev.HasEntity() {
		if ev.ID == "" {
			return "", constants.ErrMissingID
		}
		return ev.ID, nil
	}

	entityID := ev.Entity.GetID()
	switch {
	case entityID == "":
		return ev.ID, constants.ErrMissingID
	case ev.ID != "" && ev.ID != entityID:
		return ev.ID, fmt.Errorf("event id %q does not match entity id %q", ev.ID, entityID)
	}
	return entityID, nil
}

func (r *Reconciler[E]) upsert(e E) Result {
	if r.cache.Upsert(e) == cache.Inserted {
		return Result{Outcome: Inserted, ID: e.GetID()}
	}
	return Result{Outcome: Replaced, ID: e.GetID()}
}

func (r *Reconciler[E]) remove(id string) Result {
	if r.cache.Remove(id) {
		return Result{Outcome: Removed, ID: id}
	}
	return Result{Outcome: Ignored, ID: id}
}

func (r *Reconciler[E]) drop(ev models.Event[E], id string, err error) Result {
	malformed := &MalformedEventError{Action: ev.Action, ID: id, Err: err}
	r.logger.Warn("Dropping malformed event", "action", string(ev.Action), "id", id, "error", err)
	return Result{Outcome: Dropped, ID: id, Err: malformed}
}
