package game

import "errors"

var (
	ErrRoomFull        = errors.New("room is full")
	ErrNoNickname      = errors.New("nickname is required")
	ErrSessionClosed   = errors.New("session closed")
	ErrDuplicatePlayer = errors.New("player already in room")
	ErrNoValidator     = errors.New("no dictionary configured")
)
