package constants

import "time"

const (
	// RequestIDLength size of id sent on WS request
	RequestIDLength = 16
	// CloseMessageCode identifier the message id for a close request
	CloseMessageCode = 1000
	// DefaultWSTimeout is how long Send waits for an RPC response
	DefaultWSTimeout = 30 * time.Second
	// DefaultQueueSize is the initial capacity of a page task queue
	DefaultQueueSize = 64
)

var (
	WebsocketScheme       = "ws"
	SecureWebsocketScheme = "wss"
)
