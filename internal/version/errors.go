package version

import (
	"errors"
	"fmt"
)

// The errors in this file describe misuse of a Window by its caller. Window methods panic with
// them rather than returning them, so they only surface through recover. They should be tested
// using errors.Is.

// ErrEmptyWindow is the panic value for querying a Window that holds no records.
var ErrEmptyWindow = errors.New("window is empty")

// ErrUnboundRecord is the panic value for constructing a Window with a nil record.
var ErrUnboundRecord = errors.New("window record is nil")

// ErrMismatchedType is the panic value for constructing a Window from records with differing
// item types.
var ErrMismatchedType = errors.New("window records differ in item type")

type mismatchedTypeError [3]ItemType

func (e mismatchedTypeError) Error() string {
	return fmt.Sprintf("window records differ in item type: prev %s, curr %s, next %s", e[0], e[1], e[2])
}

func (e mismatchedTypeError) Is(err error) bool {
	if err == ErrMismatchedType {
		return true
	}
	downcasted, ok := err.(mismatchedTypeError)
	return ok && downcasted == e
}

// ErrMismatchedID is the panic value for constructing a Window from records belonging to
// different entities.
var ErrMismatchedID = errors.New("window records differ in ID")

type mismatchedIDError [3]ObjectID

func (e mismatchedIDError) Error() string {
	return fmt.Sprintf("window records differ in ID: prev %d, curr %d, next %d", e[0], e[1], e[2])
}

func (e mismatchedIDError) Is(err error) bool {
	if err == ErrMismatchedID {
		return true
	}
	downcasted, ok := err.(mismatchedIDError)
	return ok && downcasted == e
}
