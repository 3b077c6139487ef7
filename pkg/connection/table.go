package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"

	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/live"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/models"
)

// killTimeout bounds the kill request sent when a subscription is released.
const killTimeout = 5 * time.Second

// Table serves one table of the entity service as the collaborators of a
// live.Page.
type Table[E models.Entity] struct {
	conn   Connection
	table  models.Table
	logger logger.Logger
}

var _ live.Service[models.Template] = (*Table[models.Template])(nil)

func NewTable[E models.Entity](conn Connection, kind models.Kind[E], log logger.Logger) *Table[E] {
	if log == nil {
		log = logger.Nop()
	}
	return &Table[E]{conn: conn, table: kind.Table, logger: log}
}

// Fetch selects the rows of the table visible to the scope's viewer.
// The filter is sent along; the page re-applies it either way.
func (t *Table[E]) Fetch(ctx context.Context, scope live.Scope) ([]E, error) {
	var res RPCResponse[[]E]
	if err := Send(t.conn, ctx, &res, Select, t.table, scope.Viewer.ID, scope.Filter); err != nil {
		return nil, err
	}
	if res.Result == nil {
		return []E{}, nil
	}
	return *res.Result, nil
}

// Subscribe opens a live subscription for action. The subscription id is
// chosen here so the notification channel exists before the service can
// deliver anything on it.
func (t *Table[E]) Subscribe(ctx context.Context, action models.Action, scope live.Scope, h live.Handler[E]) (live.Unsubscribe, error) {
	liveID := uuid.Must(uuid.NewV4()).String()

	ch, err := t.conn.LiveNotifications(liveID)
	if err != nil {
		return nil, err
	}

	if err := Send[any](t.conn, ctx, nil, Live, t.table, action, scope.Viewer.ID, liveID); err != nil {
		if closeErr := t.conn.CloseLiveNotifications(liveID); closeErr != nil {
			t.logger.Debug("Closing notifications of failed subscription", "id", liveID, "error", closeErr.Error())
		}
		return nil, err
	}

	sub := &subscription[E]{table: t, id: liveID, done: make(chan struct{})}
	go sub.consume(ch, h)

	t.logger.Debug("Subscribed",
		"table", t.table.String(),
		"action", string(action),
		"id", liveID,
		"scope", scope.ID,
	)
	return sub.unsubscribe, nil
}

type subscription[E models.Entity] struct {
	table    *Table[E]
	id       string
	released atomic.Bool
	once     sync.Once
	done     chan struct{}
}

func (s *subscription[E]) consume(ch chan Notification, h live.Handler[E]) {
	defer close(s.done)
	for n := range ch {
		h.OnEvent(s.table.decode(n))
	}
	if !s.released.Load() && h.OnError != nil {
		h.OnError(fmt.Errorf("%w: live subscription %s", constants.ErrSubscriptionDropped, s.id))
	}
}

func (s *subscription[E]) unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.released.Store(true)
		if closeErr := s.table.conn.CloseLiveNotifications(s.id); closeErr != nil {
			// Already gone with the connection.
			return
		}
		<-s.done

		ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
		defer cancel()
		err = Send[any](s.table.conn, ctx, nil, Kill, s.id)
		if errors.Is(err, constants.ErrConnectionClosed) {
			err = nil
		}
	})
	return err
}

// decode turns a notification into an event. Payloads that cannot be decoded
// into E yield an event carrying Err.
func (t *Table[E]) decode(n Notification) models.Event[E] {
	ev := models.Event[E]{Action: n.Action, ID: n.Record, OwnerID: n.Owner}
	if n.Action == models.DeleteAction {
		return ev
	}
	if n.Result.IsNull() {
		ev.Err = fmt.Errorf("%w: %s notification without payload", constants.ErrUndecodable, n.Action)
		return ev
	}

	var e E
	if err := t.conn.GetUnmarshaler().Unmarshal(n.Result, &e); err != nil {
		ev.Err = fmt.Errorf("%w: %v", constants.ErrUndecodable, err)
		return ev
	}
	ev.Entity = e
	return ev
}

// Create stores e on behalf of viewerID and returns the stored entity.
func (t *Table[E]) Create(ctx context.Context, e E, viewerID string) (E, error) {
	return t.write(ctx, Create, t.table, e, viewerID)
}

// Update replaces entity id with e on behalf of viewerID.
func (t *Table[E]) Update(ctx context.Context, id string, e E, viewerID string) (E, error) {
	return t.write(ctx, Update, t.table, id, e, viewerID)
}

func (t *Table[E]) write(ctx context.Context, method RPCFunction, params ...any) (E, error) {
	var zero E
	var res RPCResponse[E]
	if err := Send(t.conn, ctx, &res, method, params...); err != nil {
		return zero, err
	}
	if res.Result == nil {
		return zero, fmt.Errorf("%s on %s: empty result", method, t.table)
	}
	return *res.Result, nil
}

// Delete removes entity id on behalf of viewerID and reports whether it existed.
func (t *Table[E]) Delete(ctx context.Context, id string, viewerID string) (bool, error) {
	var res RPCResponse[bool]
	if err := Send(t.conn, ctx, &res, Delete, t.table, id, viewerID); err != nil {
		return false, err
	}
	return res.Result != nil && *res.Result, nil
}
