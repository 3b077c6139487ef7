package live

import (
	"context"

	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/models"
)

// Create asks the entity service to create e on behalf of the current viewer.
//
// The cache is updated by the CREATE event that follows, or right away when
// the page is optimistic.
func (p *Page[E]) Create(ctx context.Context, e E) (E, error) {
	var zero E
	scope, err := p.mutationScope()
	if err != nil {
		return zero, err
	}

	mark := p.applied.Load()
	created, err := p.mutator.Create(ctx, e, scope.Viewer.ID)
	p.opts.Metrics.ObserveMutation("create", err)
	if err != nil {
		return zero, &MutationError{Table: p.kind.Table, Verb: "create", ID: e.GetID(), Err: err}
	}

	p.record(ctx, scope, "create", map[string]any{"id": created.GetID()})
	p.reflect(scope, mark, models.UpdateEvent(created))
	return created, nil
}

// Update replaces the attributes of entity id with e.
func (p *Page[E]) Update(ctx context.Context, id string, e E) (E, error) {
	return p.update(ctx, "update", id, e, map[string]any{"id": id})
}

func (p *Page[E]) update(ctx context.Context, verb, id string, e E, details map[string]any) (E, error) {
	var zero E
	scope, err := p.mutationScope()
	if err != nil {
		return zero, err
	}

	mark := p.applied.Load()
	updated, err := p.mutator.Update(ctx, id, e, scope.Viewer.ID)
	p.opts.Metrics.ObserveMutation(verb, err)
	if err != nil {
		return zero, &MutationError{Table: p.kind.Table, Verb: verb, ID: id, Err: err}
	}

	p.record(ctx, scope, verb, details)
	p.reflect(scope, mark, models.UpdateEvent(updated))
	return updated, nil
}

// Delete removes entity id. It reports false with a MutationError wrapping
// constants.ErrNotFound when the service had nothing to delete.
func (p *Page[E]) Delete(ctx context.Context, id string) (bool, error) {
	scope, err := p.mutationScope()
	if err != nil {
		return false, err
	}

	mark := p.applied.Load()
	deleted, err := p.mutator.Delete(ctx, id, scope.Viewer.ID)
	if err == nil && !deleted {
		err = constants.ErrNotFound
	}
	p.opts.Metrics.ObserveMutation("delete", err)
	if err != nil {
		return false, &MutationError{Table: p.kind.Table, Verb: "delete", ID: id, Err: err}
	}

	p.record(ctx, scope, "delete", map[string]any{"id": id})
	p.reflect(scope, mark, models.DeleteEvent[E](id, scope.Viewer.ID))
	return true, nil
}

// MarkAsRead sets Read on notification id. Under an unread-only filter the
// resulting UPDATE evicts it from the page.
func MarkAsRead(ctx context.Context, p *Page[models.Notification], id string) (models.Notification, error) {
	n, ok := p.Get(id)
	if !ok {
		return models.Notification{}, &MutationError{
			Table: p.kind.Table,
			Verb:  "mark_as_read",
			ID:    id,
			Err:   constants.ErrNotFound,
		}
	}
	if n.Read {
		return n, nil
	}
	n.Read = true
	return p.update(ctx, "mark_as_read", id, n, map[string]any{"notificationId": id})
}

func (p *Page[E]) mutationScope() (*Scope, error) {
	if p.mutator == nil {
		return nil, constants.ErrNoMutator
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, constants.ErrPageClosed
	}
	if p.requested == nil {
		return nil, constants.ErrNoScope
	}
	return p.requested, nil
}

// reflect reconciles a mutation result when the page is optimistic. mark is
// the applied count read before the mutation was issued. The result is
// discarded if the scope changed meanwhile or an event for the same id was
// applied after mark, since that event is at least as recent.
func (p *Page[E]) reflect(scope *Scope, mark uint64, ev models.Event[E]) {
	if !p.opts.Optimistic {
		return
	}
	p.queue.Enqueue(func() {
		if p.active != scope || !p.isCurrent(scope) {
			return
		}
		if p.lastEvent[ev.ID] > mark {
			p.log.Debug("Discarding mutation result superseded by an event",
				"table", p.kind.Table.String(),
				"event", ev.String(),
			)
			return
		}
		p.commit(ev, p.rec.Apply(ev))
	})
}

func (p *Page[E]) record(ctx context.Context, scope *Scope, verb string, details map[string]any) {
	if p.opts.Recorder == nil {
		return
	}
	rec := models.NewActionRecord(p.kind.Page, verb, scope.Viewer.ID, details)
	if err := p.opts.Recorder.Record(ctx, rec); err != nil {
		p.log.Warn("Recording action failed", "type", rec.Type, "error", err.Error())
	}
}
