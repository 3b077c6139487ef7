// Package gorillaws implements connection.Connection over a WebSocket using
// gorilla/websocket.
package gorillaws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/internal/rand"
	"github.com/junaikey/livecache/pkg/connection"
	"github.com/junaikey/livecache/pkg/constants"
	"github.com/junaikey/livecache/pkg/logger"
)

// DefaultDialer is gorilla's default dialer with compression enabled.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

type Option func(ws *Connection) error

type Connection struct {
	connection.Toolkit

	Conn *gorilla.Conn
	// connLock guards Conn and serializes writes.
	connLock sync.Mutex

	// Timeout bounds how long Send waits for a response.
	// Zero leaves it to the caller's context.
	Timeout time.Duration

	Option []Option
	logger logger.Logger

	// connCloseCh is closed once the current connection is closed or lost.
	connCloseCh chan struct{}

	closeLock      sync.Mutex
	connCloseError error
	closed         bool
}

var _ connection.Connection = (*Connection)(nil)

func New(p *connection.Config) *Connection {
	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Connection{
		Toolkit:     connection.NewToolkit(p),
		Timeout:     constants.DefaultWSTimeout,
		logger:      log,
		connCloseCh: make(chan struct{}),
	}
}

// IsClosed reports whether the connection was closed or lost. Connect may be
// called again to replace a lost connection; requests and live subscriptions
// of the lost one are not carried over.
func (c *Connection) IsClosed() bool {
	c.closeLock.Lock()
	defer c.closeLock.Unlock()
	return c.closed
}

// Connect dials the entity service and starts reading from it.
func (c *Connection) Connect(ctx context.Context) error {
	if err := c.PreConnectionChecks(); err != nil {
		return err
	}

	dialer := *DefaultDialer
	if named, ok := c.Marshaler.(interface{ Name() string }); ok {
		dialer.Subprotocols = []string{named.Name()}
	}

	conn, res, err := dialer.DialContext(ctx, fmt.Sprintf("%s/rpc", c.BaseURL), nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	c.connLock.Lock()
	defer c.connLock.Unlock()

	if c.Conn != nil {
		_ = c.Conn.Close()
	}
	c.Conn = conn
	c.reopen()

	for _, option := range c.Option {
		if err := option(c); err != nil {
			return err
		}
	}

	go c.readLoop(conn)

	c.logger.Debug("Connected", "url", c.BaseURL)
	return nil
}

// reopen clears the closed state left by a previous connection.
func (c *Connection) reopen() {
	c.closeLock.Lock()
	defer c.closeLock.Unlock()
	if !c.closed {
		return
	}
	c.closed = false
	c.connCloseError = nil
	c.connCloseCh = make(chan struct{})
}

// done returns the channel closed when the current connection ends.
func (c *Connection) done() <-chan struct{} {
	c.closeLock.Lock()
	defer c.closeLock.Unlock()
	return c.connCloseCh
}

func (c *Connection) SetTimeOut(timeout time.Duration) *Connection {
	c.Option = append(c.Option, func(ws *Connection) error {
		ws.Timeout = timeout
		return nil
	})
	return c
}

func (c *Connection) Logger(logData logger.Logger) *Connection {
	c.logger = logData
	return c
}

func (c *Connection) SetCompression(compress bool) *Connection {
	c.Option = append(c.Option, func(ws *Connection) error {
		ws.Conn.EnableWriteCompression(compress)
		return nil
	})
	return c
}

// Close sends a close frame and closes the connection. The context bounds the
// close frame write; the local connection is closed regardless.
func (c *Connection) Close(ctx context.Context) error {
	if !c.closeWithError(constants.ErrConnectionClosed) {
		return nil
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()

	conn := c.Conn
	c.Conn = nil
	if conn == nil {
		return nil
	}

	writeErr := make(chan error, 1)
	go func() {
		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetWriteDeadline(deadline); err != nil {
				writeErr <- err
				return
			}
		}
		writeErr <- conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(constants.CloseMessageCode, ""))
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			c.logger.Error("Failed to write close message", "error", err.Error())
		}
	case <-ctx.Done():
	}

	return conn.Close()
}

// Send issues method and waits for the response with the same id.
func (c *Connection) Send(ctx context.Context, method string, params ...any) (*connection.RPCResponse[codec.RawMessage], error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	done := c.done()
	select {
	case <-done:
		return nil, c.closeError()
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	id := rand.NewRequestID(constants.RequestIDLength)
	request := &connection.RPCRequest{
		ID:     id,
		Method: method,
		Params: params,
	}

	responseChan, err := c.CreateResponseChannel(id)
	if err != nil {
		return nil, err
	}
	defer c.RemoveResponseChannel(id)

	if err := c.write(request); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", constants.ErrTimeout, method)
		}
		return nil, ctx.Err()
	case <-done:
		return nil, c.closeError()
	case res := <-responseChan:
		if res.Error != nil {
			return nil, res.Error
		}
		return &res, nil
	}
}

func (c *Connection) write(v any) error {
	data, err := c.Marshaler.Marshal(v)
	if err != nil {
		return err
	}

	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.Conn == nil {
		return c.closeError()
	}
	err = c.Conn.WriteMessage(gorilla.BinaryMessage, data)

	if errors.Is(err, gorilla.ErrCloseSent) {
		c.closeWithError(err)
	}

	return err
}

// closeWithError marks the connection closed with err. It reports whether
// this call did the transition.
func (c *Connection) closeWithError(err error) bool {
	c.closeLock.Lock()
	if c.closed {
		c.closeLock.Unlock()
		return false
	}
	c.closed = true
	c.connCloseError = err
	close(c.connCloseCh)
	c.closeLock.Unlock()

	c.CloseAllNotifications()
	return true
}

func (c *Connection) closeError() error {
	c.closeLock.Lock()
	defer c.closeLock.Unlock()
	if c.connCloseError == nil {
		return constants.ErrConnectionClosed
	}
	return c.connCloseError
}

func (c *Connection) readLoop(conn *gorilla.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleError(conn, err)
			return
		}
		// Handled inline: notifications of one subscription must stay in order.
		c.handleResponse(data)
	}
}

// handleError ends conn after a read failure. Failures of a connection that
// was already closed or replaced are ignored.
func (c *Connection) handleError(conn *gorilla.Conn, err error) {
	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.Conn != conn {
		return
	}
	c.Conn = nil
	_ = conn.Close()

	switch {
	case errors.Is(err, net.ErrClosed),
		gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway):
		c.closeWithError(constants.ErrConnectionClosed)
		return
	case gorilla.IsUnexpectedCloseError(err):
		c.logger.Warn("Connection lost", "error", err.Error())
		c.closeWithError(io.ErrClosedPipe)
		return
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.logger.Warn("Connection lost", "error", err.Error())
	} else {
		c.logger.Error("Read failed", "error", err.Error())
	}
	c.closeWithError(err)
}

func (c *Connection) handleResponse(res []byte) {
	var rpcRes connection.RPCResponse[codec.RawMessage]
	if err := c.Unmarshaler.Unmarshal(res, &rpcRes); err != nil {
		c.logger.Error("Undecodable message", "error", err.Error(), "bytes", len(res))
		return
	}

	if rpcRes.ID != nil && rpcRes.ID != "" {
		responseChan, ok := c.GetResponseChannel(fmt.Sprintf("%v", rpcRes.ID))
		if !ok {
			c.logger.Warn("Response for unknown request", "id", fmt.Sprint(rpcRes.ID))
			return
		}
		responseChan <- rpcRes
		return
	}

	if rpcRes.Error != nil {
		// Errors without an id cannot be routed to a caller.
		c.logger.Error("Error response without id", "error", rpcRes.Error.Error())
		return
	}
	if rpcRes.Result == nil {
		c.logger.Warn("Message without id or result")
		return
	}

	var notification connection.Notification
	if err := c.Unmarshaler.Unmarshal(*rpcRes.Result, &notification); err != nil {
		c.logger.Error("Undecodable notification", "error", err.Error())
		return
	}
	if notification.ID == "" {
		c.logger.Error("Notification without live id")
		return
	}

	if !c.DeliverNotification(notification) {
		c.logger.Debug("Notification for unknown live subscription", "id", notification.ID)
	}
}
