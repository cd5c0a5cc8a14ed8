package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hyuricane/redchat/internal/domain"
	"github.com/hyuricane/redchat/internal/port"
	"github.com/hyuricane/redchat/pkg/logger"
)

const (
	// DefaultHistoryLimit caps the per-room message log when no limit is
	// configured.
	DefaultHistoryLimit = 1000
	// DefaultMessageLimit is how many entries GetMessages returns when the
	// caller passes no limit.
	DefaultMessageLimit = 100
)

// Listener receives live messages for a joined room. It is never called
// with the joining user's own messages.
type Listener func(domain.ChatMessage)

// JoinOptions carries the optional Join parameters. Password only matters
// on the first join of a nonexistent room (it fixes the room's password) or
// when the room already has one. ExpireEmptyDelay is in seconds: 0 expires
// the room's data as soon as it empties, -1 keeps it forever.
type JoinOptions struct {
	Password         string
	ExpireEmptyDelay int
}

// ChatService is the room coordination core: membership, bounded history,
// live broadcast with echo suppression, and presence-driven expiry.
type ChatService interface {
	CreateAgent(ctx context.Context, id, name string) (*Agent, error)
	Join(ctx context.Context, room string, user domain.User, listener Listener, opts JoinOptions) (domain.Room, error)
	Leave(ctx context.Context, room string, user domain.User) error
	SendMessage(ctx context.Context, room string, user domain.User, text, password string) error
	GetMessages(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error)
}

type chatService struct {
	store        port.Store
	keys         keys
	historyLimit int64
	logger       logger.Logger
}

// NewChatService builds the orchestrator on the given store. All room keys
// live under prefix; historyLimit <= 0 selects the default.
func NewChatService(ctx context.Context, store port.Store, prefix string, historyLimit int) ChatService {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &chatService{
		store:        store,
		keys:         keys{prefix: prefix},
		historyLimit: int64(historyLimit),
		logger:       logger.FromContext(ctx).WithModule("chat"),
	}
}

// Join registers the user in the room, creating the room record if absent.
// Creation is atomic (set-if-absent): when two first joins race, exactly one
// record wins and the loser is validated against it, so a password is never
// silently discarded. With a non-nil listener the user is subscribed to the
// room's broadcast and leave channels. Any pending expiry is cleared.
func (c *chatService) Join(ctx context.Context, roomName string, user domain.User, listener Listener, opts JoinOptions) (domain.Room, error) {
	if roomName == "" || user.ID == "" {
		return domain.Room{}, fmt.Errorf("room name and user id cannot be empty")
	}

	rec := domain.RoomRecord{Password: opts.Password, ExpireEmptyDelay: opts.ExpireEmptyDelay}
	payload, err := rec.Encode()
	if err != nil {
		return domain.Room{}, err
	}
	created, err := c.store.SetNX(ctx, c.keys.room(roomName), payload)
	if err != nil {
		return domain.Room{}, fmt.Errorf("create room record: %w", err)
	}
	if !created {
		raw, ok, err := c.store.Get(ctx, c.keys.room(roomName))
		if err != nil {
			return domain.Room{}, fmt.Errorf("load room record: %w", err)
		}
		if !ok {
			// the record expired between SETNX and GET; recreate it
			if err := c.store.Set(ctx, c.keys.room(roomName), payload); err != nil {
				return domain.Room{}, fmt.Errorf("create room record: %w", err)
			}
		} else {
			rec, err = domain.DecodeRoomRecord(raw)
			if err != nil {
				return domain.Room{}, err
			}
			if rec.Password != "" && rec.Password != opts.Password {
				return domain.Room{}, fmt.Errorf("%w: room %s", ErrInvalidPassword, roomName)
			}
		}
	}

	membersKey := c.keys.members(roomName)
	members, err := c.store.LRange(ctx, membersKey, 0, -1)
	if err != nil {
		return domain.Room{}, fmt.Errorf("load members: %w", err)
	}
	if !slices.Contains(members, user.ID) {
		if err := c.store.RPush(ctx, membersKey, user.ID); err != nil {
			return domain.Room{}, fmt.Errorf("add member: %w", err)
		}
		members = append(members, user.ID)
	}

	if listener != nil {
		if err := c.subscribe(ctx, roomName, user, rec.ExpireEmptyDelay, listener); err != nil {
			return domain.Room{}, fmt.Errorf("subscribe to room channels: %w", err)
		}
	}

	// Clear any pending expiry; a join during the drain window revives the
	// room. No-op when nothing is scheduled.
	if err := c.store.Persist(ctx, c.keys.room(roomName), c.keys.messages(roomName), membersKey); err != nil {
		return domain.Room{}, fmt.Errorf("clear room expiry: %w", err)
	}

	return domain.Room{Name: roomName, Members: members, ExpireEmptyDelay: rec.ExpireEmptyDelay}, nil
}

// subscribe wires one user's session to the room. The broadcast handler
// drops the user's own messages; the leave handler reacts only to this
// user's id, tears down both subscriptions, and schedules expiry if the
// room is now empty. Each session cleans up after itself, not after others.
func (c *chatService) subscribe(ctx context.Context, roomName string, user domain.User, expireDelay int, listener Listener) error {
	msgSub, err := c.store.Subscribe(ctx, c.keys.channel(roomName), func(payload string) {
		msg, err := domain.DecodeChatMessage(payload)
		if err != nil {
			c.logger.Warnf("dropping malformed message on room %s: %v", roomName, err)
			return
		}
		if msg.User.ID == user.ID {
			return
		}
		listener(msg)
	})
	if err != nil {
		return err
	}

	var leaveSub port.Subscription
	ready := make(chan struct{})
	leaveSub, err = c.store.Subscribe(ctx, c.keys.leaveChannel(roomName), func(userID string) {
		if userID != user.ID {
			return
		}
		<-ready
		bg := context.Background()
		if err := msgSub.Unsubscribe(bg); err != nil {
			c.logger.Errorf("unsubscribe %s from room %s: %v", user.ID, roomName, err)
		}
		if err := leaveSub.Unsubscribe(bg); err != nil {
			c.logger.Errorf("unsubscribe %s from room %s leave channel: %v", user.ID, roomName, err)
		}
		c.expireIfEmpty(bg, roomName, expireDelay)
	})
	if err != nil {
		_ = msgSub.Unsubscribe(ctx)
		return err
	}
	close(ready)
	return nil
}

// expireIfEmpty schedules removal of the room's record and message log once
// the membership list is gone (an emptied list ceases to exist in the
// store). The members key needs no TTL for the same reason.
func (c *chatService) expireIfEmpty(ctx context.Context, roomName string, expireDelay int) {
	exists, err := c.store.Exists(ctx, c.keys.members(roomName))
	if err != nil {
		c.logger.Errorf("check members of room %s: %v", roomName, err)
		return
	}
	if exists || expireDelay <= -1 {
		return
	}
	ttl := time.Duration(expireDelay) * time.Second
	if err := c.store.Expire(ctx, ttl, c.keys.room(roomName), c.keys.messages(roomName)); err != nil {
		c.logger.Errorf("expire room %s: %v", roomName, err)
		return
	}
	c.logger.Infof("room %s is empty, expiring in %ds", roomName, expireDelay)
}

// Leave removes the user from the membership list and publishes a leave
// notice. The notice drives subscription teardown and expiry in the user's
// own leave handler; Leave itself deletes nothing.
func (c *chatService) Leave(ctx context.Context, roomName string, user domain.User) error {
	_, ok, err := c.store.Get(ctx, c.keys.room(roomName))
	if err != nil {
		return fmt.Errorf("load room record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomName)
	}
	if err := c.store.LRem(ctx, c.keys.members(roomName), user.ID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if err := c.store.Publish(ctx, c.keys.leaveChannel(roomName), user.ID); err != nil {
		return fmt.Errorf("publish leave notice: %w", err)
	}
	return nil
}

// SendMessage validates room, password, and membership, publishes the
// envelope for live delivery, then appends it to the bounded log. The two
// writes are not ordered relative to each other: a listener may see the
// live message before or after it appears in GetMessages.
func (c *chatService) SendMessage(ctx context.Context, roomName string, user domain.User, text, password string) error {
	raw, ok, err := c.store.Get(ctx, c.keys.room(roomName))
	if err != nil {
		return fmt.Errorf("load room record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomName)
	}
	rec, err := domain.DecodeRoomRecord(raw)
	if err != nil {
		return err
	}
	if rec.Password != "" && rec.Password != password {
		return fmt.Errorf("%w: room %s", ErrInvalidPassword, roomName)
	}

	members, err := c.store.LRange(ctx, c.keys.members(roomName), 0, -1)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	if !slices.Contains(members, user.ID) {
		return fmt.Errorf("%w: %s in room %s", ErrUserNotInRoom, user.ID, roomName)
	}

	msg := domain.ChatMessage{User: user, Type: domain.MessageTypeMessage, Data: text}
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := c.store.Publish(ctx, c.keys.channel(roomName), payload); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	if err := c.store.PushTrim(ctx, c.keys.messages(roomName), payload, c.historyLimit); err != nil {
		return fmt.Errorf("append to message log: %w", err)
	}
	return nil
}

// GetMessages returns up to limit of the most recent messages in
// chronological order. The log is stored most-recent-first, so the read
// window is reversed before returning.
func (c *chatService) GetMessages(ctx context.Context, roomName string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	entries, err := c.store.LRange(ctx, c.keys.messages(roomName), 0, int64(limit)-1)
	if err != nil {
		return nil, fmt.Errorf("load message log: %w", err)
	}
	messages := make([]domain.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		msg, err := domain.DecodeChatMessage(entry)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	slices.Reverse(messages)
	return messages, nil
}

// CreateAgent binds a user identity to the service. A missing id gets a
// generated UUID; a missing name defaults to "Agent-<id>". The display name
// is recorded under the agent-name key.
func (c *chatService) CreateAgent(ctx context.Context, id, name string) (*Agent, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" {
		name = "Agent-" + id
	}
	if err := c.store.Set(ctx, c.keys.agentName(id), name); err != nil {
		return nil, fmt.Errorf("store agent name: %w", err)
	}
	return &Agent{service: c, user: domain.User{ID: id, Name: name}}, nil
}
