// Package connection speaks the entity service's RPC protocol and adapts it to
// the collaborator interfaces of package live.
//
// A [Connection] carries requests and live notifications; [Table] turns one
// table of the service into a live.Fetcher, live.Subscriber and live.Mutator.
// The WebSocket transport lives in the gorillaws subpackage.
package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/junaikey/livecache/internal/codec"
	"github.com/junaikey/livecache/pkg/constants"
)

type Connection interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	// Send issues method and waits for its response. The result stays encoded
	// until the caller decodes it with GetUnmarshaler.
	Send(ctx context.Context, method string, params ...any) (*RPCResponse[codec.RawMessage], error)
	// LiveNotifications registers the channel that receives the notifications
	// of live subscription id. The channel is closed by CloseLiveNotifications
	// or when the connection is lost.
	LiveNotifications(id string) (chan Notification, error)
	CloseLiveNotifications(id string) error
	GetUnmarshaler() codec.Unmarshaler
}

// NotificationBuffer is how many notifications of one subscription may be
// waiting for its consumer before the read loop blocks.
const NotificationBuffer = 64

// Toolkit holds the bookkeeping shared by connection implementations.
type Toolkit struct {
	BaseURL     string
	Marshaler   codec.Marshaler
	Unmarshaler codec.Unmarshaler

	ResponseChannels     map[string]chan RPCResponse[codec.RawMessage]
	ResponseChannelsLock sync.RWMutex

	NotificationChannels     map[string]chan Notification
	NotificationChannelsLock sync.RWMutex
}

func NewToolkit(c *Config) Toolkit {
	return Toolkit{
		BaseURL:              c.BaseURL,
		Marshaler:            c.Marshaler,
		Unmarshaler:          c.Unmarshaler,
		ResponseChannels:     make(map[string]chan RPCResponse[codec.RawMessage]),
		NotificationChannels: make(map[string]chan Notification),
	}
}

func (tk *Toolkit) PreConnectionChecks() error {
	if tk.BaseURL == "" {
		return constants.ErrNoBaseURL
	}

	if tk.Marshaler == nil {
		return constants.ErrNoMarshaler
	}

	if tk.Unmarshaler == nil {
		return constants.ErrNoUnmarshaler
	}

	return nil
}

func (tk *Toolkit) GetUnmarshaler() codec.Unmarshaler {
	return tk.Unmarshaler
}

func (tk *Toolkit) CreateResponseChannel(id string) (chan RPCResponse[codec.RawMessage], error) {
	tk.ResponseChannelsLock.Lock()
	defer tk.ResponseChannelsLock.Unlock()

	if _, ok := tk.ResponseChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	// Buffered so the read loop never waits for a caller that gave up.
	ch := make(chan RPCResponse[codec.RawMessage], 1)
	tk.ResponseChannels[id] = ch

	return ch, nil
}

func (tk *Toolkit) GetResponseChannel(id string) (chan RPCResponse[codec.RawMessage], bool) {
	tk.ResponseChannelsLock.RLock()
	defer tk.ResponseChannelsLock.RUnlock()
	ch, ok := tk.ResponseChannels[id]
	return ch, ok
}

func (tk *Toolkit) RemoveResponseChannel(id string) {
	tk.ResponseChannelsLock.Lock()
	defer tk.ResponseChannelsLock.Unlock()
	delete(tk.ResponseChannels, id)
}

func (tk *Toolkit) LiveNotifications(id string) (chan Notification, error) {
	tk.NotificationChannelsLock.Lock()
	defer tk.NotificationChannelsLock.Unlock()

	if _, ok := tk.NotificationChannels[id]; ok {
		return nil, fmt.Errorf("%w: %v", constants.ErrIDInUse, id)
	}

	ch := make(chan Notification, NotificationBuffer)
	tk.NotificationChannels[id] = ch

	return ch, nil
}

func (tk *Toolkit) CloseLiveNotifications(id string) error {
	tk.NotificationChannelsLock.Lock()
	defer tk.NotificationChannelsLock.Unlock()

	ch, ok := tk.NotificationChannels[id]
	if !ok {
		return fmt.Errorf("%w: live subscription %s", constants.ErrNotFound, id)
	}
	delete(tk.NotificationChannels, id)
	close(ch)

	return nil
}

// DeliverNotification hands n to the channel of its subscription. It reports
// false when no such subscription is registered.
//
// The read lock is held while sending, so a concurrent CloseLiveNotifications
// waits instead of closing the channel under the sender.
func (tk *Toolkit) DeliverNotification(n Notification) bool {
	tk.NotificationChannelsLock.RLock()
	defer tk.NotificationChannelsLock.RUnlock()

	ch, ok := tk.NotificationChannels[n.ID]
	if !ok {
		return false
	}
	ch <- n
	return true
}

// CloseAllNotifications closes every notification channel. Transports call
// it when the connection is lost.
func (tk *Toolkit) CloseAllNotifications() {
	tk.NotificationChannelsLock.Lock()
	defer tk.NotificationChannelsLock.Unlock()

	for id, ch := range tk.NotificationChannels {
		close(ch)
		delete(tk.NotificationChannels, id)
	}
}
