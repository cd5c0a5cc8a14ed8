package service

import (
	"context"

	"github.com/hyuricane/redchat/internal/domain"
)

// Agent binds one user identity to the room operations so callers need not
// pass the identity on every call. It holds no other state.
type Agent struct {
	service ChatService
	user    domain.User
}

func (a *Agent) User() domain.User { return a.user }
func (a *Agent) Name() string      { return a.user.Name }

func (a *Agent) Join(ctx context.Context, room string, listener Listener, opts JoinOptions) (domain.Room, error) {
	return a.service.Join(ctx, room, a.user, listener, opts)
}

func (a *Agent) Leave(ctx context.Context, room string) error {
	return a.service.Leave(ctx, room, a.user)
}

func (a *Agent) SendMessage(ctx context.Context, room, text, password string) error {
	return a.service.SendMessage(ctx, room, a.user, text, password)
}

func (a *Agent) GetMessages(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	return a.service.GetMessages(ctx, room, limit)
}
