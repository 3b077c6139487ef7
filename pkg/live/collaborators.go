package live

import (
	"context"

	"github.com/junaikey/livecache/pkg/models"
)

// Fetcher loads the entities of a scope.
// Implementations should return only entities the scope's predicate includes;
// the page re-checks them regardless.
type Fetcher[E models.Entity] interface {
	Fetch(ctx context.Context, scope Scope) ([]E, error)
}

// Handler receives what one subscription delivers. Both callbacks may be
// invoked from any goroutine, including after the subscription was closed.
type Handler[E models.Entity] struct {
	OnEvent func(models.Event[E])
	OnError func(error)
}

// Unsubscribe releases one subscription.
type Unsubscribe func() error

// Subscriber opens change-event subscriptions for one action of a table.
type Subscriber[E models.Entity] interface {
	Subscribe(ctx context.Context, action models.Action, scope Scope, h Handler[E]) (Unsubscribe, error)
}

// Mutator issues create, update and delete requests to the entity service.
// Results are reflected in the cache by the change events they cause.
type Mutator[E models.Entity] interface {
	Create(ctx context.Context, e E, viewerID string) (E, error)
	Update(ctx context.Context, id string, e E, viewerID string) (E, error)
	Delete(ctx context.Context, id string, viewerID string) (bool, error)
}

// Collaborators are the services a page talks to. Mutator may be nil for
// read-only pages.
type Collaborators[E models.Entity] struct {
	Fetcher    Fetcher[E]
	Subscriber Subscriber[E]
	Mutator    Mutator[E]
}

// Service is implemented by transports that provide all three collaborators.
type Service[E models.Entity] interface {
	Fetcher[E]
	Subscriber[E]
	Mutator[E]
}

// From uses s for every collaborator.
func From[E models.Entity](s Service[E]) Collaborators[E] {
	return Collaborators[E]{Fetcher: s, Subscriber: s, Mutator: s}
}
