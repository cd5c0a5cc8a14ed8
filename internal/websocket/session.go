package websocket

import (
	"context"
	"sync"

	gws "github.com/gorilla/websocket"

	"github.com/hyuricane/redchat/internal/domain"
	"github.com/hyuricane/redchat/pkg/logger"
	"github.com/hyuricane/redchat/service"
)

// Frame is the JSON message exchanged with gateway clients.
type Frame struct {
	Type             string       `json:"type"`
	Room             string       `json:"room,omitempty"`
	Data             string       `json:"data,omitempty"`
	Password         string       `json:"password,omitempty"`
	ExpireEmptyDelay int          `json:"expire_empty_delay,omitempty"`
	Limit            int          `json:"limit,omitempty"`
	User             *domain.User `json:"user,omitempty"`
}

const (
	FrameJoin    = "join"
	FrameJoined  = "joined"
	FrameLeave   = "leave"
	FrameMessage = "message"
	FrameHistory = "history"
	FrameError   = "error"
)

const (
	sendBufferSize = 256
	// how many log entries are replayed right after a join
	joinHistoryReplay = 5
)

// Session is one WebSocket client: an Agent plus the pumps translating
// frames into core calls and live messages back into frames.
type Session struct {
	ws       *gws.Conn
	agent    *service.Agent
	registry *Registry
	logger   logger.Logger
	send     chan Frame

	mu     sync.Mutex
	rooms  map[string]bool
	closed bool
}

func NewSession(conn *gws.Conn, agent *service.Agent, registry *Registry, log logger.Logger) *Session {
	return &Session{
		ws:       conn,
		agent:    agent,
		registry: registry,
		logger:   log.WithFields(map[string]interface{}{"user": agent.User().ID}),
		send:     make(chan Frame, sendBufferSize),
		rooms:    make(map[string]bool),
	}
}

// ReadPump consumes client frames until the connection drops, then closes
// the session so every joined room sees a leave.
func (s *Session) ReadPump() {
	defer s.Close()
	for {
		var frame Frame
		if err := s.ws.ReadJSON(&frame); err != nil {
			s.logger.Debugf("read ended: %v", err)
			return
		}
		s.handle(frame)
	}
}

// WritePump drains the send queue into the socket.
func (s *Session) WritePump() {
	defer s.ws.Close()
	for frame := range s.send {
		if err := s.ws.WriteJSON(frame); err != nil {
			s.logger.Debugf("write ended: %v", err)
			return
		}
	}
}

func (s *Session) handle(frame Frame) {
	ctx := context.Background()
	switch frame.Type {
	case FrameJoin:
		s.handleJoin(ctx, frame)
	case FrameMessage:
		if err := s.agent.SendMessage(ctx, frame.Room, frame.Data, frame.Password); err != nil {
			s.pushError(frame.Room, err)
		}
	case FrameHistory:
		s.pushHistory(ctx, frame.Room, frame.Limit)
	case FrameLeave:
		if err := s.agent.Leave(ctx, frame.Room); err != nil {
			s.pushError(frame.Room, err)
			return
		}
		s.mu.Lock()
		delete(s.rooms, frame.Room)
		s.mu.Unlock()
	default:
		s.pushError(frame.Room, errUnknownFrame(frame.Type))
	}
}

func (s *Session) handleJoin(ctx context.Context, frame Frame) {
	roomName := frame.Room
	room, err := s.agent.Join(ctx, roomName, s.listener(roomName), service.JoinOptions{
		Password:         frame.Password,
		ExpireEmptyDelay: frame.ExpireEmptyDelay,
	})
	if err != nil {
		s.pushError(roomName, err)
		return
	}
	s.mu.Lock()
	s.rooms[roomName] = true
	s.mu.Unlock()

	s.push(Frame{Type: FrameJoined, Room: room.Name, Data: joinedData(room)})
	s.pushHistory(ctx, room.Name, joinHistoryReplay)
}

// listener forwards live room messages to the client. Echo suppression
// already happened in the core.
func (s *Session) listener(roomName string) service.Listener {
	return func(msg domain.ChatMessage) {
		user := msg.User
		s.push(Frame{Type: msg.Type, Room: roomName, Data: msg.Data, User: &user})
	}
}

func (s *Session) pushHistory(ctx context.Context, roomName string, limit int) {
	messages, err := s.agent.GetMessages(ctx, roomName, limit)
	if err != nil {
		s.pushError(roomName, err)
		return
	}
	for _, msg := range messages {
		user := msg.User
		s.push(Frame{Type: FrameHistory, Room: roomName, Data: msg.Data, User: &user})
	}
}

func (s *Session) pushError(roomName string, err error) {
	s.logger.Warnf("operation failed on room %q: %v", roomName, err)
	s.push(Frame{Type: FrameError, Room: roomName, Data: err.Error()})
}

func (s *Session) push(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- frame:
	default:
		s.logger.Warnf("send buffer full, dropping %s frame", frame.Type)
	}
}

// Close leaves every joined room so subscriptions and presence are not
// leaked by a dropped connection, then shuts the session down. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	close(s.send)
	s.mu.Unlock()

	ctx := context.Background()
	for _, room := range rooms {
		if err := s.agent.Leave(ctx, room); err != nil {
			s.logger.Errorf("leave room %s on close: %v", room, err)
		}
	}
	s.registry.remove(s)
	s.ws.Close()
}

func joinedData(room domain.Room) string {
	data := ""
	for i, member := range room.Members {
		if i > 0 {
			data += ","
		}
		data += member
	}
	return data
}

type errUnknownFrame string

func (e errUnknownFrame) Error() string { return "unknown frame type: " + string(e) }
