package live

import (
	"context"
	"errors"
	"sync"

	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/models"
	"github.com/junaikey/livecache/pkg/reconcile"
)

type fakeSub[E models.Entity] struct {
	id      int
	action  models.Action
	scope   Scope
	handler Handler[E]
	closed  bool
	closes  int
}

// fakeService is an in-memory entity service. Mutations do not emit events;
// tests emit them explicitly to control interleaving.
type fakeService[E models.Entity] struct {
	mu           sync.Mutex
	rows         map[string]E
	fetchErr     error
	fetchGate    chan struct{}
	fetchScopes  []Scope
	subscribeErr map[models.Action]error
	mutateErr    error
	subs         []*fakeSub[E]
}

func newFakeService[E models.Entity](rows ...E) *fakeService[E] {
	s := &fakeService[E]{
		rows:         map[string]E{},
		subscribeErr: map[models.Action]error{},
	}
	for _, r := range rows {
		s.rows[r.GetID()] = r
	}
	return s
}

func (s *fakeService[E]) Fetch(ctx context.Context, scope Scope) ([]E, error) {
	s.mu.Lock()
	gate := s.fetchGate
	s.fetchScopes = append(s.fetchScopes, scope)
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := make([]E, 0, len(s.rows))
	for _, r := range s.rows {
		if filter.Visible(scope.Viewer, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeService[E]) Subscribe(_ context.Context, action models.Action, scope Scope, h Handler[E]) (Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.subscribeErr[action]; err != nil {
		return nil, err
	}
	sub := &fakeSub[E]{id: len(s.subs), action: action, scope: scope, handler: h}
	s.subs = append(s.subs, sub)
	return func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		sub.closes++
		sub.closed = true
		return nil
	}, nil
}

func (s *fakeService[E]) Create(_ context.Context, e E, _ string) (E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutateErr != nil {
		var zero E
		return zero, s.mutateErr
	}
	s.rows[e.GetID()] = e
	return e, nil
}

func (s *fakeService[E]) Update(_ context.Context, id string, e E, _ string) (E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero E
	if s.mutateErr != nil {
		return zero, s.mutateErr
	}
	if _, ok := s.rows[id]; !ok {
		return zero, errors.New("no such row")
	}
	s.rows[id] = e
	return e, nil
}

func (s *fakeService[E]) Delete(_ context.Context, id string, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutateErr != nil {
		return false, s.mutateErr
	}
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

// emit delivers ev to every open subscription for its action.
func (s *fakeService[E]) emit(ev models.Event[E]) {
	for _, sub := range s.open() {
		if sub.action == ev.Action {
			sub.handler.OnEvent(ev)
		}
	}
}

// emitAll delivers ev to every subscription ever opened for its action,
// including closed ones.
func (s *fakeService[E]) emitAll(ev models.Event[E]) {
	s.mu.Lock()
	subs := append([]*fakeSub[E](nil), s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.action == ev.Action {
			sub.handler.OnEvent(ev)
		}
	}
}

// drop reports err on every open subscription.
func (s *fakeService[E]) drop(err error) {
	for _, sub := range s.open() {
		sub.handler.OnError(err)
	}
}

func (s *fakeService[E]) open() []*fakeSub[E] {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeSub[E]
	for _, sub := range s.subs {
		if !sub.closed {
			out = append(out, sub)
		}
	}
	return out
}

func (s *fakeService[E]) allSubs() []*fakeSub[E] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeSub[E](nil), s.subs...)
}

type recorded struct {
	mu      sync.Mutex
	records []models.ActionRecord
	err     error
}

func (r *recorded) Record(_ context.Context, rec models.ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

func (r *recorded) all() []models.ActionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ActionRecord(nil), r.records...)
}

// publish applies ev to the stored rows, then emits it.
func (s *fakeService[E]) publish(ev models.Event[E]) {
	s.mu.Lock()
	if ev.Action == models.DeleteAction {
		delete(s.rows, ev.ID)
	} else {
		s.rows[ev.Entity.GetID()] = ev.Entity
	}
	s.mu.Unlock()
	s.emit(ev)
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[reconcile.Outcome]int
	scopes   []error
	dropped  int
	muts     int
	size     int
}

func (m *countingMetrics) ObserveEvent(_ models.Action, outcome reconcile.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[reconcile.Outcome]int{}
	}
	m.outcomes[outcome]++
}

func (m *countingMetrics) ObserveScope(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes = append(m.scopes, err)
}

func (m *countingMetrics) ObserveSubscriptionError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped++
}

func (m *countingMetrics) ObserveMutation(string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muts++
}

func (m *countingMetrics) SetCacheSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = n
}

func (m *countingMetrics) count(o reconcile.Outcome) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[o]
}
