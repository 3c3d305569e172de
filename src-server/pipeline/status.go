package pipeline

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusClosed  Status = "closed"
)

var ErrInvalidTransition = errors.New("invalid status transition")

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusClosed:
		return true
	}
	return false
}

// Closed deals never reopen; active and pending move freely between each
// other and into closed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	switch from {
	case StatusActive:
		return to == StatusPending || to == StatusClosed
	case StatusPending:
		return to == StatusActive || to == StatusClosed
	}
	return false
}

func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("Transition: %s -> %s: %w", from, to, ErrInvalidTransition)
	}
	return to, nil
}
