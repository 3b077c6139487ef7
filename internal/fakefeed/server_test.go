package fakefeed

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/connection"
	"github.com/junaikey/livecache/pkg/connection/gorillaws"
	"github.com/junaikey/livecache/pkg/models"
)

func startServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", opts...)
	s.SampleData()
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		if err := s.Stop(); err != nil {
			t.Logf("Failed to stop server: %v", err)
		}
	})
	return s
}

func dial(t *testing.T, s *Server, c codec.Codec) *gorillaws.Connection {
	t.Helper()
	u, err := url.Parse(s.URL())
	require.NoError(t, err)

	conn := gorillaws.New(connection.NewConfig(u).WithCodec(c))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Connect(ctx))
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

func selectIDs(t *testing.T, conn connection.Connection, table models.Table, viewer string) []string {
	t.Helper()
	var res connection.RPCResponse[[]Document]
	require.NoError(t, connection.Send(conn, context.Background(), &res, connection.Select, table, viewer))
	require.NotNil(t, res.Result)

	var ids []string
	for _, doc := range *res.Result {
		ids = append(ids, doc.ID())
	}
	return ids
}

func TestServer(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	require.NoError(t, s.Start())
	assert.NotEmpty(t, s.Address())
	assert.Contains(t, s.URL(), "ws://127.0.0.1:")
	require.NoError(t, s.Stop())
}

func TestSelect_AppliesVisibility(t *testing.T) {
	for _, c := range []codec.Codec{codec.NewCBOR(), codec.NewJSON()} {
		t.Run(c.Name(), func(t *testing.T) {
			s := startServer(t, WithCodec(c))
			conn := dial(t, s, c)

			assert.ElementsMatch(t, []string{"tpl-standup", "tpl-bug"}, selectIDs(t, conn, models.TemplateTable, SeedViewer))
			assert.ElementsMatch(t, []string{"tpl-standup", "tpl-review"}, selectIDs(t, conn, models.TemplateTable, "someone-else"))
			assert.ElementsMatch(t, []string{"tpl-standup"}, selectIDs(t, conn, models.TemplateTable, ""))
			assert.ElementsMatch(t, []string{"ntf-welcome", "ntf-import"}, selectIDs(t, conn, models.NotificationTable, SeedViewer))
		})
	}
}

func TestLive_BroadcastsByTableAndAction(t *testing.T) {
	s := startServer(t)
	conn := dial(t, s, codec.NewCBOR())
	ctx := context.Background()

	creates, err := conn.LiveNotifications("live-create")
	require.NoError(t, err)
	require.NoError(t, connection.Send[any](conn, ctx, nil, connection.Live, models.TemplateTable, models.CreateAction, SeedViewer, "live-create"))

	deletes, err := conn.LiveNotifications("live-delete")
	require.NoError(t, err)
	require.NoError(t, connection.Send[any](conn, ctx, nil, connection.Live, models.TemplateTable, models.DeleteAction, SeedViewer, "live-delete"))
	assert.Equal(t, 2, s.Subscriptions())

	s.Put(models.GlossaryTable, Document{"id": "term-other", "term": "elsewhere", "is_public": true})
	s.Put(models.TemplateTable, Document{"id": "tpl-new", "name": "New", "is_public": true})
	require.True(t, s.Remove(models.TemplateTable, "tpl-bug"))
	assert.False(t, s.Remove(models.TemplateTable, "tpl-missing"))

	select {
	case n := <-creates:
		assert.Equal(t, "live-create", n.ID)
		assert.Equal(t, models.CreateAction, n.Action)
		assert.Equal(t, "tpl-new", n.Record)

		var tpl models.Template
		require.NoError(t, conn.GetUnmarshaler().Unmarshal(n.Result, &tpl))
		assert.Equal(t, "New", tpl.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no CREATE notification")
	}

	select {
	case n := <-deletes:
		assert.Equal(t, models.DeleteAction, n.Action)
		assert.Equal(t, "tpl-bug", n.Record)
		assert.Equal(t, SeedViewer, n.Owner)
		assert.True(t, n.Result.IsNull())
	case <-time.After(5 * time.Second):
		t.Fatal("no DELETE notification")
	}

	require.NoError(t, connection.Send[any](conn, ctx, nil, connection.Kill, "live-create"))
	assert.Equal(t, 1, s.Subscriptions())

	err = connection.Send[any](conn, ctx, nil, connection.Kill, "live-create")
	var rpcErr *connection.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, connection.CodeNotFound, rpcErr.Code)
}

func TestMutations(t *testing.T) {
	s := startServer(t)
	conn := dial(t, s, codec.NewCBOR())
	ctx := context.Background()

	t.Run("create assigns id and owner", func(t *testing.T) {
		var res connection.RPCResponse[models.Template]
		require.NoError(t, connection.Send(conn, ctx, &res, connection.Create, models.TemplateTable, models.Template{Name: "Mine"}, SeedViewer))
		require.NotNil(t, res.Result)
		assert.NotEmpty(t, res.Result.ID)
		assert.Equal(t, SeedViewer, res.Result.UserID)
	})

	t.Run("update of someone else's row is denied", func(t *testing.T) {
		err := connection.Send[any](conn, ctx, nil, connection.Update, models.TemplateTable, "tpl-review", models.Template{Name: "Hijack"}, SeedViewer)
		var rpcErr *connection.RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, connection.CodeInvalidRequest, rpcErr.Code)
	})

	t.Run("update of a missing row", func(t *testing.T) {
		err := connection.Send[any](conn, ctx, nil, connection.Update, models.TemplateTable, "tpl-missing", models.Template{Name: "Ghost"}, SeedViewer)
		var rpcErr *connection.RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, connection.CodeNotFound, rpcErr.Code)
	})

	t.Run("delete reports existence", func(t *testing.T) {
		var res connection.RPCResponse[bool]
		require.NoError(t, connection.Send(conn, ctx, &res, connection.Delete, models.TemplateTable, "tpl-bug", SeedViewer))
		require.NotNil(t, res.Result)
		assert.True(t, *res.Result)

		require.NoError(t, connection.Send(conn, ctx, &res, connection.Delete, models.TemplateTable, "tpl-bug", SeedViewer))
		require.NotNil(t, res.Result)
		assert.False(t, *res.Result)
	})

	t.Run("unknown method", func(t *testing.T) {
		err := connection.Send[any](conn, ctx, nil, connection.RPCFunction("explode"))
		var rpcErr *connection.RPCError
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, connection.CodeMethodNotFound, rpcErr.Code)
	})
}

func TestFailures(t *testing.T) {
	s := startServer(t)
	conn := dial(t, s, codec.NewCBOR())
	ctx := context.Background()

	s.SetFailures(FailureConfig{Type: FailureRPCError, Method: "select", Probability: 1, Message: "select is down"})
	err := connection.Send[any](conn, ctx, nil, connection.Select, models.TemplateTable, SeedViewer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select is down")

	s.SetFailures(FailureConfig{Type: FailureCorruptedNotification, Method: "create", Probability: 1})
	ch, err := conn.LiveNotifications("live-corrupt")
	require.NoError(t, err)
	require.NoError(t, connection.Send[any](conn, ctx, nil, connection.Live, models.TemplateTable, models.CreateAction, SeedViewer, "live-corrupt"))
	require.NoError(t, connection.Send[any](conn, ctx, nil, connection.Create, models.TemplateTable, models.Template{Name: "Broken"}, SeedViewer))

	select {
	case n := <-ch:
		var tpl models.Template
		assert.Error(t, conn.GetUnmarshaler().Unmarshal(n.Result, &tpl))
	case <-time.After(5 * time.Second):
		t.Fatal("no notification")
	}

	s.SetFailures(FailureConfig{Type: FailureDropConnection, Method: "select", Probability: 1})
	err = connection.Send[any](conn, ctx, nil, connection.Select, models.TemplateTable, SeedViewer)
	require.Error(t, err)

	_, open := <-ch
	assert.False(t, open, "notification channels close with the connection")
	assert.True(t, conn.IsClosed())
}
