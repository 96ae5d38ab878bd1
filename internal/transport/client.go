package transport

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/Ujjwal250802/chatapplication/internal/chat"
)

// Client is one identity's live attachment to the hub. It is owned by a
// single session and must be released with Disconnect before the same
// identity reconnects.
type Client struct {
	hub      *Hub
	identity Identity
	send     chan []byte

	once sync.Once
	done chan struct{}
}

// ConnLike is the subset of a websocket connection the pumps need.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

func (c *Client) Identity() Identity { return c.identity }

// Disconnect releases the identity binding and stops delivery.
func (c *Client) Disconnect() {
	c.hub.disconnect(c)
	c.closeQueue()
}

func (c *Client) closeQueue() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once the client has been disconnected.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) connected() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// ChannelOptions carry channel creation metadata alongside the member set.
type ChannelOptions struct {
	Members []Identity
	Name    string
}

// Channel returns this client's handle for (ctype, key), creating the
// underlying channel if it does not exist yet. The handle is inert until
// Watch is called.
func (c *Client) Channel(ctype, key string, opts ChannelOptions) (*ChannelHandle, error) {
	if !c.connected() {
		if c.hub.isClosed() {
			return nil, ErrTransportUnavailable
		}
		return nil, ErrNotConnected
	}
	st, err := c.hub.ensureChannel(ctype, key, opts.Members, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", key, err)
	}
	return &ChannelHandle{client: c, state: st}, nil
}

// ChannelHandle is one session's view of a channel. Each participant holds
// its own handle against the same key; handles are never shared across
// sessions.
type ChannelHandle struct {
	client *Client
	state  *channelState

	mu      sync.Mutex
	watched bool
}

// Watch subscribes the owning client to the channel. Watching twice is a
// no-op, never an error.
func (h *ChannelHandle) Watch() error {
	if !h.client.connected() {
		return ErrNotConnected
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.mu.Lock()
	h.state.watchers[h.client.identity.ID] = h.client
	if _, ok := h.state.members[h.client.identity.ID]; !ok {
		h.state.members[h.client.identity.ID] = h.client.identity
	}
	h.state.mu.Unlock()
	h.watched = true
	return nil
}

// Key returns the channel's key.
func (h *ChannelHandle) Key() string { return h.state.key }

// Members returns a snapshot of the channel's member identities.
func (h *ChannelHandle) Members() []Identity { return h.state.memberList() }

// SendMessage delivers msg to every watcher of the channel. The channel must
// be watched first.
func (h *ChannelHandle) SendMessage(msg chat.Message) error {
	if !h.client.connected() {
		return fmt.Errorf("send: %w", ErrNotConnected)
	}
	h.mu.Lock()
	watched := h.watched
	h.mu.Unlock()
	if !watched {
		return ErrNotWatched
	}
	h.state.deliver(h.client.identity, msg)
	return nil
}

// ReadPump feeds inbound frames from conn into the channel until the
// connection drops, then releases the client. Inbound frames are always
// treated as plain text: confirmation records are only ever constructed
// server-side from a verified outcome, so any payment tag a client sends is
// stripped.
func (c *Client) ReadPump(conn ConnLike, h *ChannelHandle) {
	defer c.Disconnect()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg chat.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		msg.Type = ""
		msg.PaymentDetails = nil
		if err := h.SendMessage(msg); err != nil {
			return
		}
	}
}

// WritePump drains the client's delivery queue onto conn. Messages that
// classify as suppressed are dropped here so a malformed record never
// reaches the channel view.
func (c *Client) WritePump(conn ConnLike) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			var msg chat.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if chat.Classify(msg) == chat.RenderSuppressed {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// Deliveries exposes the raw delivery queue; tests and non-websocket
// consumers read from it directly.
func (c *Client) Deliveries() <-chan []byte { return c.send }
