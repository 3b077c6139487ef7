// Package fakefeed provides an in-memory entity service that speaks the
// livecache RPC protocol over WebSocket.
//
// Tables hold raw documents. select applies the visibility rule for the
// requesting viewer; create, update and delete broadcast a notification to
// every live subscription on the same table and action, leaving it to the
// client to decide whether the change concerns it.
//
// The WebSocket server is implemented using the `gws` library. Failures can be
// injected per method to exercise client error paths.
package fakefeed

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/lxzan/gws"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/connection"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/models"
)

// Document is a stored row. Its "id" member is its key; "user_id" and
// "is_public" decide who may select it.
type Document map[string]any

func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

func (d Document) Owner() string {
	owner, _ := d["user_id"].(string)
	return owner
}

// VisibleTo reports whether viewer may select d.
func (d Document) VisibleTo(viewer string) bool {
	if public, _ := d["is_public"].(bool); public {
		return true
	}
	owner := d.Owner()
	return owner != "" && owner == viewer
}

type liveSub struct {
	id     string
	table  models.Table
	action models.Action
	viewer string
	socket *gws.Conn
}

// Server is a fake entity service.
type Server struct {
	addr     string
	listener net.Listener
	server   *gws.Server
	codec    codec.Codec
	logger   logger.Logger

	// mu guards the maps below. It is held while broadcasting so that
	// notifications leave in the order the changes were made.
	mu          sync.RWMutex
	tables      map[models.Table]map[string]Document
	subs        map[string]*liveSub
	connections map[*gws.Conn]bool
	failures    []FailureConfig

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Server)

func WithCodec(c codec.Codec) Option {
	return func(s *Server) {
		s.codec = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Handler implements the gws.Handler interface for WebSocket connections
type Handler struct {
	server *Server
}

// NewServer creates a fake entity service.
// Use "127.0.0.1:0" to bind to a random available port.
func NewServer(addr string, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:        addr,
		codec:       codec.NewCBOR(),
		logger:      logger.Nop(),
		tables:      make(map[models.Table]map[string]Document),
		subs:        make(map[string]*liveSub),
		connections: make(map[*gws.Conn]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = gws.NewServer(&Handler{server: s}, &gws.ServerOption{})
	s.server.OnError = func(_ net.Conn, err error) {
		if !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("Server error", "error", err.Error())
		}
	}

	return s
}

// SetFailures replaces the failure injection configuration.
func (s *Server) SetFailures(failures ...FailureConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = failures
}

// Start binds the address and begins accepting WebSocket connections.
func (s *Server) Start() error {
	var lc net.ListenConfig
	listener, err := lc.Listen(s.ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.server.RunListener(listener); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("Listener stopped", "error", err.Error())
		}
	}()

	s.logger.Info("Fake feed listening", "addr", listener.Addr().String(), "codec", s.codec.Name())
	return nil
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() error {
	s.cancel()
	s.DropConnections()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Address returns the actual address the server is listening on.
// This is useful when using "127.0.0.1:0" to get the assigned port.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the WebSocket URL clients should dial.
func (s *Server) URL() string {
	return "ws://" + s.Address()
}

// DropConnections closes every client connection, as a network failure would.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := slices.Collect(maps.Keys(s.connections))
	s.mu.Unlock()

	for _, socket := range conns {
		_ = socket.NetConn().Close()
	}
}

// Subscriptions returns the number of live subscriptions.
func (s *Server) Subscriptions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Documents returns the rows of table ordered by id.
func (s *Server) Documents(table models.Table) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.tables[table]
	out := make([]Document, 0, len(rows))
	for _, doc := range rows {
		out = append(out, maps.Clone(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Put stores doc as if a client had created or updated it, and broadcasts
// the change.
func (s *Server) Put(table models.Table, doc Document) Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc = maps.Clone(doc)
	if doc.ID() == "" {
		doc["id"] = uuid.Must(uuid.NewV4()).String()
	}
	action := models.CreateAction
	if _, ok := s.rows(table)[doc.ID()]; ok {
		action = models.UpdateAction
	}
	s.rows(table)[doc.ID()] = doc
	s.broadcast(table, action, doc, false)
	return doc
}

// Remove deletes a row and broadcasts the deletion. It reports whether the
// row existed.
func (s *Server) Remove(table models.Table, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.rows(table)[id]
	if !ok {
		return false
	}
	delete(s.rows(table), id)
	s.broadcast(table, models.DeleteAction, doc, false)
	return true
}

// rows must be called with mu held.
func (s *Server) rows(table models.Table) map[string]Document {
	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[string]Document)
		s.tables[table] = rows
	}
	return rows
}

// broadcast must be called with mu held.
func (s *Server) broadcast(table models.Table, action models.Action, doc Document, corrupt bool) {
	var payload codec.RawMessage
	if action != models.DeleteAction {
		var err error
		if corrupt {
			payload, err = s.codec.Marshal("corrupted payload")
		} else {
			payload, err = s.codec.Marshal(doc)
		}
		if err != nil {
			s.logger.Error("Encoding notification payload", "error", err.Error())
			return
		}
	}

	for _, sub := range s.subs {
		if sub.table != table || sub.action != action {
			continue
		}
		n := connection.Notification{
			ID:     sub.id,
			Action: action,
			Record: doc.ID(),
			Owner:  doc.Owner(),
			Result: payload,
		}
		s.send(sub.socket, nil, n)
	}
}

func (h *Handler) OnOpen(socket *gws.Conn) {
	h.server.mu.Lock()
	h.server.connections[socket] = true
	h.server.mu.Unlock()
}

func (h *Handler) OnClose(socket *gws.Conn, err error) {
	h.server.mu.Lock()
	defer h.server.mu.Unlock()
	delete(h.server.connections, socket)
	for id, sub := range h.server.subs {
		if sub.socket == socket {
			delete(h.server.subs, id)
		}
	}
}

func (h *Handler) OnPing(socket *gws.Conn, payload []byte) {
	if err := socket.WritePong(payload); err != nil {
		h.server.logger.Warn("Error writing pong", "error", err.Error())
	}
}

func (h *Handler) OnPong(socket *gws.Conn, payload []byte) {
}

func (h *Handler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	s := h.server

	var req connection.RPCRequest
	if err := s.codec.Unmarshal(message.Bytes(), &req); err != nil {
		s.sendError(socket, nil, connection.CodeParseError, "Parse error")
		return
	}

	s.mu.RLock()
	failures := s.failures
	s.mu.RUnlock()

	corrupt := false
	for _, failure := range failures {
		if !failure.matches(req.Method) {
			continue
		}
		switch failure.Type {
		case FailureRequestDelay:
			time.Sleep(randomDuration(failure.MinDelay, failure.MaxDelay))
		case FailureRPCError:
			msg := failure.Message
			if msg == "" {
				msg = "failure injection"
			}
			s.sendError(socket, req.ID, connection.CodeInternalError, msg)
			return
		case FailureDropConnection:
			_ = socket.NetConn().Close()
			return
		case FailureCorruptedNotification:
			corrupt = true
		}
	}

	result, rpcErr := s.handle(socket, &req, corrupt)
	if rpcErr != nil {
		s.sendError(socket, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	s.send(socket, req.ID, result)
}

func (s *Server) handle(socket *gws.Conn, req *connection.RPCRequest, corrupt bool) (any, *connection.RPCError) {
	p := params(req.Params)
	switch connection.RPCFunction(req.Method) {
	case connection.Select:
		return s.selectRows(models.Table(p.string(0)), p.string(1)), nil

	case connection.Live:
		table, action, viewer, id := models.Table(p.string(0)), models.Action(p.string(1)), p.string(2), p.string(3)
		if table == "" || !action.Valid() {
			return nil, invalidParams("live requires a table and an action")
		}
		if id == "" {
			id = uuid.Must(uuid.NewV4()).String()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			return nil, invalidParams("live subscription " + id + " already exists")
		}
		s.subs[id] = &liveSub{id: id, table: table, action: action, viewer: viewer, socket: socket}
		return id, nil

	case connection.Kill:
		s.mu.Lock()
		defer s.mu.Unlock()
		id := p.string(0)
		if _, ok := s.subs[id]; !ok {
			return nil, &connection.RPCError{Code: connection.CodeNotFound, Message: "unknown live subscription " + id}
		}
		delete(s.subs, id)
		return nil, nil

	case connection.Create:
		doc, ok := p.document(1)
		if !ok {
			return nil, invalidParams("create requires a document")
		}
		return s.create(models.Table(p.string(0)), doc, p.string(2), corrupt)

	case connection.Update:
		doc, ok := p.document(2)
		if !ok {
			return nil, invalidParams("update requires a document")
		}
		return s.update(models.Table(p.string(0)), p.string(1), doc, p.string(3), corrupt)

	case connection.Delete:
		return s.delete(models.Table(p.string(0)), p.string(1), p.string(2))

	default:
		return nil, &connection.RPCError{Code: connection.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func (s *Server) selectRows(table models.Table, viewer string) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.tables[table]))
	for _, doc := range s.tables[table] {
		if doc.VisibleTo(viewer) {
			out = append(out, doc)
		}
	}
	return out
}

func (s *Server) create(table models.Table, doc Document, viewer string, corrupt bool) (any, *connection.RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID() == "" {
		doc["id"] = uuid.Must(uuid.NewV4()).String()
	}
	if doc.Owner() == "" && viewer != "" {
		doc["user_id"] = viewer
	}
	if _, exists := s.rows(table)[doc.ID()]; exists {
		return nil, invalidParams(fmt.Sprintf("%s %s already exists", table, doc.ID()))
	}
	s.rows(table)[doc.ID()] = doc
	s.broadcast(table, models.CreateAction, doc, corrupt)
	return doc, nil
}

func (s *Server) update(table models.Table, id string, doc Document, viewer string, corrupt bool) (any, *connection.RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rows(table)[id]
	if !ok {
		return nil, &connection.RPCError{Code: connection.CodeNotFound, Message: fmt.Sprintf("%s %s not found", table, id)}
	}
	if err := checkOwner(stored, viewer); err != nil {
		return nil, err
	}
	doc["id"] = id
	s.rows(table)[id] = doc
	s.broadcast(table, models.UpdateAction, doc, corrupt)
	return doc, nil
}

func (s *Server) delete(table models.Table, id, viewer string) (any, *connection.RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rows(table)[id]
	if !ok {
		return false, nil
	}
	if err := checkOwner(stored, viewer); err != nil {
		return nil, err
	}
	delete(s.rows(table), id)
	s.broadcast(table, models.DeleteAction, stored, false)
	return true, nil
}

func checkOwner(doc Document, viewer string) *connection.RPCError {
	if owner := doc.Owner(); owner != "" && owner != viewer {
		return &connection.RPCError{Code: connection.CodeInvalidRequest, Message: "permission denied"}
	}
	return nil
}

func invalidParams(msg string) *connection.RPCError {
	return &connection.RPCError{Code: connection.CodeInvalidParams, Message: "invalid params: " + msg}
}

type params []any

func (p params) string(i int) string {
	if i >= len(p) {
		return ""
	}
	s, _ := p[i].(string)
	return s
}

func (p params) document(i int) (Document, bool) {
	if i >= len(p) {
		return nil, false
	}
	switch v := p[i].(type) {
	case map[string]any:
		return Document(v), true
	case map[any]any:
		doc := make(Document, len(v))
		for k, val := range v {
			doc[fmt.Sprint(k)] = val
		}
		return doc, true
	}
	return nil, false
}

func (s *Server) send(socket *gws.Conn, id, result any) {
	var resp connection.RPCResponse[any]
	resp.ID = id
	resp.Result = &result

	data, err := s.codec.Marshal(resp)
	if err != nil {
		s.sendError(socket, id, connection.CodeInternalError, fmt.Sprintf("send: %v", err))
		return
	}
	s.write(socket, data)
}

func (s *Server) sendError(socket *gws.Conn, id any, code int, message string) {
	var resp connection.RPCResponse[any]
	resp.ID = id
	resp.Error = &connection.RPCError{
		Code:    code,
		Message: message,
	}

	data, err := s.codec.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to marshal error response", "error", err.Error())
		return
	}
	s.write(socket, data)
}

func (s *Server) write(socket *gws.Conn, data []byte) {
	opcode := gws.OpcodeBinary
	if s.codec.Name() == codec.NameJSON {
		opcode = gws.OpcodeText
	}
	if err := socket.WriteMessage(opcode, data); err != nil && !isClosed(err) {
		s.logger.Warn("Error writing message", "error", err.Error())
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || strings.HasSuffix(err.Error(), "use of closed network connection")
}
