package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/filter"
	"github.com/junaikey/livecache/pkg/live"
	"github.com/junaikey/livecache/pkg/models"
)

var testScope = live.Scope{
	ID:     "scope-1",
	Table:  models.TemplateTable,
	Viewer: models.Viewer{ID: "alice"},
	Filter: filter.Filter{Tags: []string{"work"}},
}

type recordingHandler struct {
	events chan models.Event[models.Template]
	errs   chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		events: make(chan models.Event[models.Template], 8),
		errs:   make(chan error, 1),
	}
}

func (r *recordingHandler) handler() live.Handler[models.Template] {
	return live.Handler[models.Template]{
		OnEvent: func(ev models.Event[models.Template]) { r.events <- ev },
		OnError: func(err error) { r.errs <- err },
	}
}

func (r *recordingHandler) next(t *testing.T) models.Event[models.Template] {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return models.Event[models.Template]{}
	}
}

func subscribe(t *testing.T, conn *mockConnection, action models.Action, h *recordingHandler) (string, live.Unsubscribe) {
	t.Helper()
	table := NewTable(conn, models.Templates, nil)
	unsubscribe, err := table.Subscribe(context.Background(), action, testScope, h.handler())
	require.NoError(t, err)

	lives := conn.requests(Live)
	require.NotEmpty(t, lives)
	params := lives[len(lives)-1].Params
	require.Len(t, params, 4)
	assert.Equal(t, models.TemplateTable, params[0])
	assert.Equal(t, action, params[1])
	assert.Equal(t, "alice", params[2])

	liveID, ok := params[3].(string)
	require.True(t, ok)
	return liveID, unsubscribe
}

func TestTable_Fetch(t *testing.T) {
	conn := newMockConnection(codec.NewCBOR())
	conn.handle(Select, func([]any) (any, error) {
		return []models.Template{{ID: "tpl-1", Name: "One", Tags: []string{"work"}, UserID: "alice"}}, nil
	})
	table := NewTable(conn, models.Templates, nil)

	got, err := table.Fetch(context.Background(), testScope)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tpl-1", got[0].ID)
	assert.Equal(t, []string{"work"}, got[0].Tags)

	params := conn.requests(Select)[0].Params
	assert.Equal(t, models.TemplateTable, params[0])
	assert.Equal(t, "alice", params[1])
	assert.Equal(t, testScope.Filter, params[2])
}

func TestTable_FetchEmptyAndFailing(t *testing.T) {
	conn := newMockConnection(codec.NewCBOR())
	table := NewTable(conn, models.Templates, nil)

	got, err := table.Fetch(context.Background(), testScope)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	boom := errors.New("select failed")
	conn.handle(Select, func([]any) (any, error) { return nil, boom })
	_, err = table.Fetch(context.Background(), testScope)
	assert.ErrorIs(t, err, boom)
}

func TestTable_SubscribeDecodesNotifications(t *testing.T) {
	conn := newMockConnection(codec.NewCBOR())
	h := newRecordingHandler()
	liveID, unsubscribe := subscribe(t, conn, models.CreateAction, h)
	defer func() { _ = unsubscribe() }()

	conn.notify(t, liveID, models.CreateAction, "tpl-2", "alice", models.Template{ID: "tpl-2", Name: "Two", UserID: "alice"})
	ev := h.next(t)
	require.NoError(t, ev.Err)
	assert.Equal(t, models.CreateAction, ev.Action)
	assert.Equal(t, "tpl-2", ev.ID)
	assert.Equal(t, "alice", ev.OwnerID)
	assert.Equal(t, "Two", ev.Entity.Name)

	conn.notify(t, liveID, models.UpdateAction, "tpl-3", "", "not a template")
	ev = h.next(t)
	assert.ErrorIs(t, ev.Err, constants.ErrUndecodable)
	assert.Equal(t, "tpl-3", ev.ID)

	conn.notify(t, liveID, models.UpdateAction, "tpl-4", "", nil)
	ev = h.next(t)
	assert.ErrorIs(t, ev.Err, constants.ErrUndecodable)

	conn.notify(t, liveID, models.DeleteAction, "tpl-2", "alice", nil)
	ev = h.next(t)
	require.NoError(t, ev.Err)
	assert.Equal(t, models.DeleteAction, ev.Action)
	assert.Equal(t, "tpl-2", ev.ID)
}

func TestTable_UnsubscribeKillsWithoutError(t *testing.T) {
	conn := newMockConnection(codec.NewCBOR())
	h := newRecordingHandler()
	liveID, unsubscribe := subscribe(t, conn, models.DeleteAction, h)

	require.NoError(t, unsubscribe())
	require.NoError(t, unsubscribe(), "releasing twice is a no-op")

	kills := conn.requests(Kill)
	require.Len(t, kills, 1)
	assert.Equal(t, []any{liveID}, kills[0].Params)
	assert.Empty(t, h.errs, "a released subscription does not report a drop")
	assert.False(t, conn.DeliverNotification(Notification{ID: liveID}))
}

func TestTable_ConnectionLossReportsDrop(t *testing.T) {
	conn := newMockConnection(codec.NewCBOR())
	h := newRecordingHandler()
	_, unsubscribe := subscribe(t, conn, models.UpdateAction, h)

	require.NoError(t, conn.Close(context.Background()))

	select {
	case err := <-h.errs:
		assert.ErrorIs(t, err, constants.ErrSubscriptionDropped)
	case <-time.After(time.Second):
		t.Fatal("no drop reported")
	}

	require.NoError(t, unsubscribe())
	assert.Empty(t, conn.requests(Kill), "nothing to kill once the connection is gone")
}

func TestTable_SubscribeFailureReleasesChannel(t *testing.T) {
	conn := newMockConnection(codec.NewCBOR())
	boom := errors.New("live refused")
	conn.handle(Live, func([]any) (any, error) { return nil, boom })

	table := NewTable(conn, models.Templates, nil)
	_, err := table.Subscribe(context.Background(), models.CreateAction, testScope, newRecordingHandler().handler())
	require.ErrorIs(t, err, boom)

	conn.NotificationChannelsLock.RLock()
	defer conn.NotificationChannelsLock.RUnlock()
	assert.Empty(t, conn.NotificationChannels)
}

func TestTable_Mutations(t *testing.T) {
	conn := newMockConnection(codec.NewJSON())
	conn.handle(Create, func(params []any) (any, error) {
		tpl := params[1].(models.Template)
		tpl.ID = "tpl-new"
		tpl.UserID = params[2].(string)
		return tpl, nil
	})
	conn.handle(Update, func(params []any) (any, error) {
		tpl := params[2].(models.Template)
		tpl.ID = params[1].(string)
		return tpl, nil
	})
	conn.handle(Delete, func(params []any) (any, error) {
		return params[1] == "tpl-new", nil
	})

	table := NewTable(conn, models.Templates, nil)
	ctx := context.Background()

	created, err := table.Create(ctx, models.Template{Name: "Fresh"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "tpl-new", created.ID)
	assert.Equal(t, "alice", created.UserID)

	updated, err := table.Update(ctx, "tpl-new", models.Template{Name: "Renamed"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "tpl-new", updated.ID)
	assert.Equal(t, "Renamed", updated.Name)

	existed, err := table.Delete(ctx, "tpl-new", "alice")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = table.Delete(ctx, "tpl-gone", "alice")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestTable_WriteWithoutResult(t *testing.T) {
	conn := newMockConnection(codec.NewCBOR())
	table := NewTable(conn, models.Templates, nil)

	_, err := table.Create(context.Background(), models.Template{Name: "Lost"}, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty result")
}
