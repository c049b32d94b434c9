package service

import "errors"

// 业务哨兵错误：controller 层据此映射为对应的响应码
var (
	ErrDuplicateInFlight    = errors.New("duplicate request in flight")
	ErrInvalidTier          = errors.New("entry fee is not a valid tier")
	ErrAlreadyInRoom        = errors.New("user already in an open room of this tier")
	ErrRoomFull             = errors.New("room is full")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrRoomNotFound         = errors.New("room not found")
	ErrNotInRoom            = errors.New("user is not an active participant of this room")
	ErrLeaveNotAllowed      = errors.New("leave not allowed in current state")
	ErrSpinNotReady         = errors.New("room not eligible for spin")
)
