// Package channel derives canonical channel keys and ensures channels exist
// and are watched before anything else touches them.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Ujjwal250802/chatapplication/internal/transport"
)

// TypeMessaging is the channel type used for every conversation.
const TypeMessaging = "messaging"

// keySeparator joins the sorted participant ids of a direct chat.
const keySeparator = "-"

var (
	ErrBadParticipants = errors.New("need two distinct participant ids")
	ErrUnknownGroup    = errors.New("group not found")
)

// GroupStore resolves a group's persisted external channel id. The id is
// opaque, created once at group creation, and never regenerated.
type GroupStore interface {
	GroupChannelID(ctx context.Context, groupID string) (string, error)
}

// DeriveDirectKey computes the canonical key for a direct chat between a and
// b. The key is a pure function of the pair: both sides derive the identical
// key regardless of argument order.
func DeriveDirectKey(a, b string) (string, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" || a == b {
		return "", ErrBadParticipants
	}
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, keySeparator), nil
}

type Resolver struct {
	groups GroupStore
}

func NewResolver(groups GroupStore) *Resolver {
	return &Resolver{groups: groups}
}

// DirectKey derives the key for a two-participant chat.
func (r *Resolver) DirectKey(a, b string) (string, error) {
	return DeriveDirectKey(a, b)
}

// GroupKey looks up the stored channel id for a group.
func (r *Resolver) GroupKey(ctx context.Context, groupID string) (string, error) {
	if r.groups == nil {
		return "", ErrUnknownGroup
	}
	key, err := r.groups.GroupChannelID(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("group %s: %w", groupID, err)
	}
	if key == "" {
		return "", fmt.Errorf("group %s: %w", groupID, ErrUnknownGroup)
	}
	return key, nil
}

// Ensure creates-or-attaches the channel for key on the given client and
// watches it. Calling it twice with the same key and member set attaches to
// the same underlying channel; it is never an error.
func (r *Resolver) Ensure(client *transport.Client, key string, members []transport.Identity, name string) (*transport.ChannelHandle, error) {
	h, err := client.Channel(TypeMessaging, key, transport.ChannelOptions{Members: members, Name: name})
	if err != nil {
		return nil, fmt.Errorf("ensure channel %s: %w", key, err)
	}
	if err := h.Watch(); err != nil {
		return nil, fmt.Errorf("watch channel %s: %w", key, err)
	}
	return h, nil
}
