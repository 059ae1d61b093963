package domain

import (
	"slices"

	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
)

// ErrPositionOutOfRange is returned when a move targets an index outside the sequence.
var ErrPositionOutOfRange = domainerrors.Validation("Position out of range")

// errItemMissing is translated by Layout into the list or card flavoured not found error.
var errItemMissing = domainerrors.NotFound("Item not found")

// Positioned is an element of an ordered sibling sequence.
// Position is the zero-based rank of the element among its siblings.
type Positioned interface {
	Key() string
	SetPosition(int)
}

// Append assigns position = len(seq) and appends item.
func Append[T Positioned](seq []T, item T) []T {
	item.SetPosition(len(seq))
	return append(seq, item)
}

// IndexOf returns the index of the element with the given key, or -1.
// Sequences hold tens of elements, so this is a plain scan.
func IndexOf[T Positioned](seq []T, key string) int {
	return slices.IndexFunc(seq, func(item T) bool { return item.Key() == key })
}

// Renumber assigns position = index to every element.
func Renumber[T Positioned](seq []T) {
	for i, item := range seq {
		item.SetPosition(i)
	}
}

// MoveWithin moves the element at from to index to and renumbers every sibling.
// Both indexes must address an existing element.
func MoveWithin[T Positioned](seq []T, from, to int) error {
	if from < 0 || from >= len(seq) || to < 0 || to >= len(seq) {
		return ErrPositionOutOfRange
	}
	item := seq[from]
	if from < to {
		copy(seq[from:to], seq[from+1:to+1])
	} else {
		copy(seq[to+1:from+1], seq[to:from])
	}
	seq[to] = item
	Renumber(seq)
	return nil
}

// MoveAcross moves the element with key from the from sequence into the to sequence at toIndex,
// renumbering both. Preconditions are checked before either sequence is touched, so on error
// both sequences are returned unchanged.
func MoveAcross[T Positioned](from, to []T, key string, toIndex int) ([]T, []T, error) {
	idx := IndexOf(from, key)
	if idx < 0 {
		return from, to, errItemMissing
	}
	if toIndex < 0 || toIndex > len(to) {
		return from, to, ErrPositionOutOfRange
	}

	item := from[idx]
	from = slices.Delete(from, idx, idx+1)
	to = slices.Insert(to, toIndex, item)
	Renumber(from)
	Renumber(to)
	return from, to, nil
}

// Remove deletes the element with key and renumbers the remaining siblings.
func Remove[T Positioned](seq []T, key string) ([]T, T, error) {
	var zero T
	idx := IndexOf(seq, key)
	if idx < 0 {
		return seq, zero, errItemMissing
	}
	item := seq[idx]
	seq = slices.Delete(seq, idx, idx+1)
	Renumber(seq)
	return seq, item, nil
}

// IsDense reports whether every element's position equals its index.
func IsDense[T interface {
	Positioned
	GetPosition() int
}](seq []T) bool {
	for i, item := range seq {
		if item.GetPosition() != i {
			return false
		}
	}
	return true
}
