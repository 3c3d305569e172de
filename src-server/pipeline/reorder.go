package pipeline

import (
	"errors"
	"fmt"
	"slices"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Reorder moves the element at from to position to and returns the result as
// a new slice; list itself is left untouched.
func Reorder[T any](list []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(list) {
		return nil, fmt.Errorf("Reorder: from=%d len=%d: %w", from, len(list), ErrIndexOutOfRange)
	}
	if to < 0 || to >= len(list) {
		return nil, fmt.Errorf("Reorder: to=%d len=%d: %w", to, len(list), ErrIndexOutOfRange)
	}

	result := slices.Clone(list)
	item := result[from]
	result = slices.Delete(result, from, from+1)
	result = slices.Insert(result, to, item)
	return result, nil
}
