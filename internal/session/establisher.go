// Package session owns the connect lifecycle: one establisher composes the
// identity and channel resolvers into a single idempotent connect operation
// and holds the resulting client and channel handles for the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Ujjwal250802/chatapplication/internal/channel"
	"github.com/Ujjwal250802/chatapplication/internal/identity"
	"github.com/Ujjwal250802/chatapplication/internal/transport"
)

// ErrConnect is the single user-facing "could not connect" condition. The
// sequence is retried only on an explicit caller action, never looped.
var ErrConnect = errors.New("could not connect to chat")

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Target names the conversation to establish: a peer for a direct chat or a
// stored group.
type Target struct {
	PeerID  string
	GroupID string
}

type Establisher struct {
	hub      *transport.Hub
	ids      *identity.Resolver
	channels *channel.Resolver
	log      *slog.Logger

	mu     sync.Mutex
	state  State
	client *transport.Client
	handle *transport.ChannelHandle
	peer   transport.Identity
}

func NewEstablisher(hub *transport.Hub, ids *identity.Resolver, channels *channel.Resolver, log *slog.Logger) *Establisher {
	return &Establisher{hub: hub, ids: ids, channels: channels, log: log, state: StateIdle}
}

func (e *Establisher) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Establisher) Client() *transport.Client {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client
}

func (e *Establisher) Channel() *transport.ChannelHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle
}

// Peer is the other participant's identity, resolved by diffing the
// channel's membership against the local identity.
func (e *Establisher) Peer() transport.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.peer
}

// Connect runs the full establishment sequence: release any stale identity
// binding, connect with the token, resolve the channel key, ensure and watch
// the channel, and resolve the peer. Any step failing moves the session to
// Disconnected and surfaces ErrConnect. Calling Connect while already
// connected is a no-op.
func (e *Establisher) Connect(ctx context.Context, user *identity.AuthenticatedUser, token string, target Target) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateConnected {
		return nil
	}
	e.state = StateConnecting

	id, err := e.ids.Resolve(user)
	if err != nil {
		return e.fail(err)
	}
	if token == "" {
		return e.fail(transport.ErrInvalidToken)
	}

	// A stale binding for this identity would make the transport reject the
	// new connect.
	if e.client != nil {
		e.client.Disconnect()
		e.client = nil
	}
	if prior, ok := e.hub.ClientByID(id.ID); ok {
		prior.Disconnect()
	}

	client, err := e.hub.Connect(id, token)
	if err != nil {
		return e.fail(err)
	}

	key, members, err := e.resolveTarget(ctx, id, target)
	if err != nil {
		client.Disconnect()
		return e.fail(err)
	}

	handle, err := e.channels.Ensure(client, key, members, "")
	if err != nil {
		client.Disconnect()
		return e.fail(err)
	}

	for _, m := range handle.Members() {
		if m.ID != id.ID {
			e.peer = m
			break
		}
	}

	e.client = client
	e.handle = handle
	e.state = StateConnected
	e.log.Info("session established", "user", id.ID, "channel", key)
	return nil
}

func (e *Establisher) resolveTarget(ctx context.Context, self transport.Identity, target Target) (string, []transport.Identity, error) {
	if target.GroupID != "" {
		key, err := e.channels.GroupKey(ctx, target.GroupID)
		if err != nil {
			return "", nil, err
		}
		return key, []transport.Identity{self}, nil
	}
	key, err := e.channels.DirectKey(self.ID, target.PeerID)
	if err != nil {
		return "", nil, err
	}
	members := []transport.Identity{self, {ID: target.PeerID}}
	return key, members, nil
}

// fail is called with e.mu held.
func (e *Establisher) fail(err error) error {
	e.state = StateDisconnected
	e.log.Warn("session establishment failed", "err", err)
	return fmt.Errorf("%w: %w", ErrConnect, err)
}

// Teardown releases the transport binding so a later session for another
// identity cannot inherit it.
func (e *Establisher) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Disconnect()
		e.client = nil
	}
	e.handle = nil
	e.state = StateDisconnected
}
