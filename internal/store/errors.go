package store

import (
	"errors"
	"fmt"

	"sehlabs.com/history/internal/entity"
	"sehlabs.com/history/internal/version"
)

// ErrEntityDoesNotExist is the error returned for attempts to read or delete an entity for which
// the store holds no versions, or for which no version was valid at the requested time. This may be
// wrapped in another error, and should normally be tested using
// errors.Is(err, ErrEntityDoesNotExist).
var ErrEntityDoesNotExist = errors.New("entity does not exist")

type entityDoesNotExistError string

func (e entityDoesNotExistError) Error() string {
	return fmt.Sprintf("entity %s does not exist", string(e))
}

func (e entityDoesNotExistError) Is(err error) bool {
	if err == ErrEntityDoesNotExist {
		return true
	}
	downcasted, ok := err.(*entityDoesNotExistError)
	return ok && *downcasted == e
}

// ErrEntityDeleted is the error returned for attempts to delete an entity whose latest version
// already marks it as deleted. This may be wrapped in another error, and should normally be tested
// using errors.Is(err, ErrEntityDeleted).
var ErrEntityDeleted = errors.New("entity is already deleted")

type entityDeletedError string

func (e entityDeletedError) Error() string {
	return fmt.Sprintf("entity %s is already deleted", string(e))
}

func (e entityDeletedError) Is(err error) bool {
	if err == ErrEntityDeleted {
		return true
	}
	downcasted, ok := err.(*entityDeletedError)
	return ok && *downcasted == e
}

// ErrVersionConflict is the error returned for attempts to append a version of an entity whose
// version number does not exceed that of the latest stored version. This may be wrapped in another
// error, and should normally be tested using errors.Is(err, ErrVersionConflict).
var ErrVersionConflict = errors.New("entity version conflicts with the stored history")

type versionConflictError struct {
	key      entity.Key
	latest   version.VersionNumber
	proposed version.VersionNumber
}

func (e versionConflictError) Error() string {
	return fmt.Sprintf("entity %s already has version %d, so cannot accept version %d", e.key, e.latest, e.proposed)
}

func (e versionConflictError) Is(err error) bool {
	if err == ErrVersionConflict {
		return true
	}
	downcasted, ok := err.(versionConflictError)
	return ok && downcasted == e
}

// ErrOutOfOrder is the error returned for attempts to append a version of an entity created
// earlier than the latest stored version. This may be wrapped in another error, and should
// normally be tested using errors.Is(err, ErrOutOfOrder).
var ErrOutOfOrder = errors.New("entity version precedes the latest stored version")

type outOfOrderError struct {
	key      entity.Key
	latest   version.Timestamp
	proposed version.Timestamp
}

func (e outOfOrderError) Error() string {
	return fmt.Sprintf("entity %s has a version created at %s, so cannot accept one created at %s", e.key, e.latest, e.proposed)
}

func (e outOfOrderError) Is(err error) bool {
	if err == ErrOutOfOrder {
		return true
	}
	downcasted, ok := err.(outOfOrderError)
	return ok && downcasted == e
}

// ErrInvalidInterval is the error returned for queries over an interval that ends before it
// starts.
var ErrInvalidInterval = errors.New("interval ends before it starts")
