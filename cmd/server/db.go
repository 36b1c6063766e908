package main

import (
	"context"

	"sehlabs.com/history/internal/entity"
	"sehlabs.com/history/internal/store"
	"sehlabs.com/history/internal/version"
)

type database interface {
	// Append adds the given version to the history of its entity.
	//
	// If the history already holds a version with an equal or greater version number, Append
	// returns ErrVersionConflict. If its latest version is newer, Append returns ErrOutOfOrder.
	Append(ctx context.Context, o *entity.Object) error
	// Delete marks the entity with the given key as deleted as of the given time, returning the
	// version recording the deletion.
	//
	// If the entity does not exist, Delete returns ErrEntityDoesNotExist. If it's already
	// deleted, Delete returns ErrEntityDeleted.
	Delete(ctx context.Context, k entity.Key, changeset version.ChangesetID, ts version.Timestamp, user string) (*entity.Object, error)
	// Windows returns a window positioned on each version of the entity, oldest first.
	Windows(ctx context.Context, k entity.Key) ([]store.Window, error)
	// WindowAt returns the window positioned on the version valid at time t.
	WindowAt(ctx context.Context, k entity.Key, t version.Timestamp) (store.Window, error)
	// Between returns the windows positioned on the versions valid at some point within
	// [from, to).
	Between(ctx context.Context, k entity.Key, from, to version.Timestamp) ([]store.Window, error)
}

var _ database = (*store.ShardedStore)(nil)
