package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageTypeMessage is the envelope type of a regular chat message. Other
// types may travel on the broadcast channel; listeners receive them as-is.
const MessageTypeMessage = "message"

// ErrMalformedRecord reports a persisted or published record that failed
// schema validation on decode.
var ErrMalformedRecord = errors.New("malformed record")

// User identifies a chat participant. Identity is fixed for the lifetime of
// the Agent that carries it.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatMessage is the wire and storage envelope: the unit published on a
// room's broadcast channel and the unit stored in its message log.
type ChatMessage struct {
	User User   `json:"user"`
	Type string `json:"type"`
	Data string `json:"data"`
}

// Encode serializes the envelope for publishing and log storage.
func (m ChatMessage) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode chat message: %w", err)
	}
	return string(data), nil
}

// DecodeChatMessage parses and validates an envelope. An entry without a
// sender id or a type is rejected as malformed rather than passed through.
func DecodeChatMessage(payload string) (ChatMessage, error) {
	var msg ChatMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: chat message: %v", ErrMalformedRecord, err)
	}
	if msg.User.ID == "" {
		return ChatMessage{}, fmt.Errorf("%w: chat message missing user id", ErrMalformedRecord)
	}
	if msg.Type == "" {
		return ChatMessage{}, fmt.Errorf("%w: chat message missing type", ErrMalformedRecord)
	}
	return msg, nil
}

// RoomRecord is the persisted room descriptor. The password is fixed once
// the record is created; ExpireEmptyDelay is the number of seconds the
// room's data survives after the last member leaves, with -1 meaning the
// room never expires.
type RoomRecord struct {
	Password         string `json:"password"`
	ExpireEmptyDelay int    `json:"expire_empty_delay"`
}

func (r RoomRecord) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode room record: %w", err)
	}
	return string(data), nil
}

func DecodeRoomRecord(payload string) (RoomRecord, error) {
	var rec RoomRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return RoomRecord{}, fmt.Errorf("%w: room record: %v", ErrMalformedRecord, err)
	}
	if rec.ExpireEmptyDelay < -1 {
		return RoomRecord{}, fmt.Errorf("%w: room record has expire delay %d", ErrMalformedRecord, rec.ExpireEmptyDelay)
	}
	return rec, nil
}

// Room is the in-memory view returned to Join callers. Members are user ids
// in insertion order.
type Room struct {
	Name             string
	Members          []string
	ExpireEmptyDelay int
}
