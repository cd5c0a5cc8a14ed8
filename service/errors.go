package service

import "errors"

var (
	// ErrRoomNotFound reports an operation on a room with no record.
	ErrRoomNotFound = errors.New("room not found")
	// ErrInvalidPassword reports a password that does not match the room's
	// non-empty stored password.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrUserNotInRoom reports a sender who is not in the membership list.
	ErrUserNotInRoom = errors.New("user not in room")
)
