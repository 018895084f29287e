package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for the broker and its collaborators.
var (
	ErrRoomExists   = errors.New("room already exists")
	ErrConnNotFound = errors.New("connection not found")
	ErrAlreadyBound = errors.New("connection already bound to another room")
	ErrNotBound     = errors.New("connection is not bound to a room")
	ErrInvalid      = errors.New("invalid payload")
	ErrUnknownRoom  = errors.New("room does not exist")
)
