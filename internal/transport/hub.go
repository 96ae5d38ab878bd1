package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Ujjwal250802/chatapplication/internal/chat"
)

var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrAlreadyConnected     = errors.New("identity already connected")
	ErrNotConnected         = errors.New("client not connected")
	ErrNotWatched           = errors.New("channel not watched")
)

// Identity is the transport-facing representation of a user.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Hub is the in-process real-time transport: it owns the client registry and
// the channel table, and delivers messages FIFO per channel into per-client
// buffered queues.
type Hub struct {
	creds Credentials
	log   *slog.Logger

	mu       sync.RWMutex
	clients  map[string]*Client        // identity id -> client
	channels map[string]*channelState  // type:key -> channel
	closed   bool
}

func NewHub(creds Credentials, log *slog.Logger) *Hub {
	return &Hub{
		creds:    creds,
		log:      log,
		clients:  map[string]*Client{},
		channels: map[string]*channelState{},
	}
}

// Connect attaches an identity to the hub after validating its access token.
// A second connect for an identity that is still attached is an error; the
// caller owns disconnecting the stale binding first.
func (h *Hub) Connect(id Identity, token string) (*Client, error) {
	if id.ID == "" {
		return nil, fmt.Errorf("connect: empty identity")
	}
	if err := h.creds.ValidateToken(token, id.ID); err != nil {
		return nil, fmt.Errorf("connect %s: %w", id.ID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrTransportUnavailable
	}
	if _, ok := h.clients[id.ID]; ok {
		return nil, fmt.Errorf("connect %s: %w", id.ID, ErrAlreadyConnected)
	}
	c := &Client{
		hub:      h,
		identity: id,
		send:     make(chan []byte, 16),
		done:     make(chan struct{}),
	}
	h.clients[id.ID] = c
	h.log.Info("client connected", "user", id.ID)
	return c, nil
}

func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.identity.ID]; ok && cur == c {
		delete(h.clients, c.identity.ID)
	}
	for _, st := range h.channels {
		st.mu.Lock()
		delete(st.watchers, c.identity.ID)
		st.mu.Unlock()
	}
	h.mu.Unlock()
	h.log.Info("client disconnected", "user", c.identity.ID)
}

// ClientByID returns the live client for an identity, if any.
func (h *Hub) ClientByID(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// ChannelCount reports how many distinct channels exist.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// Close shuts the hub down; further operations fail with
// ErrTransportUnavailable.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, c := range h.clients {
		c.closeQueue()
	}
	h.clients = map[string]*Client{}
}

// ensureChannel creates the channel for (ctype, key) if absent and merges the
// declared member set. Calling it again with the same arguments is a no-op.
func (h *Hub) ensureChannel(ctype, key string, members []Identity, name string) (*channelState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrTransportUnavailable
	}
	ck := ctype + ":" + key
	st, ok := h.channels[ck]
	if !ok {
		st = &channelState{
			ctype:    ctype,
			key:      key,
			name:     name,
			members:  map[string]Identity{},
			watchers: map[string]*Client{},
		}
		h.channels[ck] = st
	}
	st.mu.Lock()
	for _, m := range members {
		if m.ID != "" {
			st.members[m.ID] = m
		}
	}
	if st.name == "" {
		st.name = name
	}
	st.mu.Unlock()
	return st, nil
}

// Publish sends a message into a channel without a connected client, on
// behalf of from. The server-side confirmation path uses this after payment
// verification. The channel is created if absent.
func (h *Hub) Publish(ctype, key string, from Identity, members []Identity, msg chat.Message) error {
	st, err := h.ensureChannel(ctype, key, members, "")
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	st.deliver(from, msg)
	return nil
}

// Publisher is a server-side sender bound to one channel and one sending
// identity. It satisfies the confirmation emitter's sender contract without
// holding a connected client.
type Publisher struct {
	hub     *Hub
	ctype   string
	key     string
	from    Identity
	members []Identity
}

func (h *Hub) Publisher(ctype, key string, from Identity, members []Identity) *Publisher {
	return &Publisher{hub: h, ctype: ctype, key: key, from: from, members: members}
}

func (p *Publisher) SendMessage(msg chat.Message) error {
	return p.hub.Publish(p.ctype, p.key, p.from, p.members, msg)
}

type channelState struct {
	ctype string
	key   string
	name  string

	mu       sync.Mutex
	members  map[string]Identity
	watchers map[string]*Client
	seq      int64
}

// deliver stamps the message and fans it out to every watcher. The channel
// mutex is held across seq assignment and enqueue, which is what makes
// delivery FIFO per channel.
func (st *channelState) deliver(from Identity, msg chat.Message) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.seq++
	msg.Seq = st.seq
	msg.SenderID = from.ID
	msg.SenderName = from.Name
	msg.ChannelKey = st.key

	data, err := json.Marshal(&msg)
	if err != nil {
		return
	}
	for _, w := range st.watchers {
		if !w.connected() {
			continue
		}
		select {
		case w.send <- data:
		default:
			// slow consumer, drop rather than block the channel
		}
	}
}

func (st *channelState) memberList() []Identity {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Identity, 0, len(st.members))
	for _, m := range st.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
