// Package store keeps the version histories of many entities in memory, and positions windows over
// those histories to answer when each version was valid.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash"
	"go.uber.org/zap"

	"sehlabs.com/history/internal/entity"
	"sehlabs.com/history/internal/version"
)

// A KeyShardProjection is a projection function from a given entity key to an opaque value with
// which to assign the key to a storage shard.
type KeyShardProjection func(entity.Key) uint64

type shardedStoreOptions struct {
	initialHistoryMapCapacity int
	keyShardProjection        KeyShardProjection
	logger                    *zap.Logger
}

// ShardedStoreOption is a potential customization of a ShardedStore's behavior.
type ShardedStoreOption func(*shardedStoreOptions) error

// WithInitialHistoryMapCapacity establishes the positive number of entities per shard for which
// to allocate sufficient capacity initially.
func WithInitialHistoryMapCapacity(n int) ShardedStoreOption {
	return func(o *shardedStoreOptions) error {
		if n < 1 {
			return errors.New("initial history map capacity must be positive")
		}
		o.initialHistoryMapCapacity = n
		return nil
	}
}

// WithKeyShardProjection establishes a projection function from a given entity key to an opaque
// value with which to assign the key to a storage shard.
//
// The function must be deterministic, should produce an even distribution of output values for
// keys, and should complete quickly.
func WithKeyShardProjection(p KeyShardProjection) ShardedStoreOption {
	return func(o *shardedStoreOptions) error {
		if p == nil {
			return errors.New("key shard projection must be non-nil")
		}
		o.keyShardProjection = p
		return nil
	}
}

// WithLogger establishes the logger to which the store reports accepted and rejected versions.
func WithLogger(l *zap.Logger) ShardedStoreOption {
	return func(o *shardedStoreOptions) error {
		if l == nil {
			return errors.New("logger must be non-nil")
		}
		o.logger = l
		return nil
	}
}

func projectKey(k entity.Key) uint64 {
	var b [10]byte
	binary.BigEndian.PutUint16(b[:2], uint16(k.Type))
	binary.BigEndian.PutUint64(b[2:], uint64(k.ID))
	return xxhash.Sum64(b[:])
}

type historyMap struct {
	lock           shardLock
	historiesByKey map[entity.Key]history
}

const shardDegree = 512

// ShardedStore holds the version histories of entities in a set of maps relating each entity key
// to its versions, oldest first. Histories only grow: each new version must follow the latest one
// both in version number and in time.
//
// A ShardedStore is safe for concurrent use.
type ShardedStore struct {
	keyShardProjection KeyShardProjection
	logger             *zap.Logger
	historyMaps        [shardDegree]historyMap
}

// MakeShardedStore creates an empty ShardedStore ready to accept entity versions.
func MakeShardedStore(opts ...ShardedStoreOption) (*ShardedStore, error) {
	options := shardedStoreOptions{
		keyShardProjection:        projectKey,
		initialHistoryMapCapacity: 50,
		logger:                    zap.NewNop(),
	}
	for _, o := range opts {
		if err := o(&options); err != nil {
			return nil, err
		}
	}
	s := ShardedStore{
		keyShardProjection: options.keyShardProjection,
		logger:             options.logger,
	}
	for i := range s.historyMaps {
		s.historyMaps[i].lock = makeShardLock()
		s.historyMaps[i].historiesByKey = make(map[entity.Key]history, options.initialHistoryMapCapacity)
	}
	return &s, nil
}

func (s *ShardedStore) historyMapFor(k entity.Key) *historyMap {
	return &s.historyMaps[s.keyShardProjection(k)%shardDegree]
}

func (s *ShardedStore) historyFor(ctx context.Context, k entity.Key) (history, error) {
	hm := s.historyMapFor(k)
	if !hm.lock.rlock(ctx) {
		return nil, ctx.Err()
	}
	h, ok := hm.historiesByKey[k]
	hm.lock.runlock()
	if !ok {
		return nil, entityDoesNotExistError(k.String())
	}
	return h, nil
}

func (s *ShardedStore) appendTo(ctx context.Context, k entity.Key, propose func(history) (*entity.Object, error)) (*entity.Object, error) {
	hm := s.historyMapFor(k)
	if !hm.lock.lock(ctx) {
		return nil, ctx.Err()
	}
	defer hm.lock.unlock()
	h := hm.historiesByKey[k]
	o, err := propose(h)
	if err == nil {
		err = h.admit(k, o)
	}
	if err != nil {
		s.logger.Debug("Rejected entity version",
			zap.Stringer("entity", k),
			zap.Error(err))
		return nil, err
	}
	hm.historiesByKey[k] = append(h, o)
	s.logger.Debug("Appended entity version",
		zap.Stringer("entity", k),
		zap.Uint32("version", uint32(o.Version())),
		zap.Stringer("timestamp", o.Timestamp()),
		zap.Bool("visible", o.Visible()))
	return o, nil
}

// Append adds the given version to the history of its entity.
//
// If the history already holds a version with an equal or greater version number, Append returns
// ErrVersionConflict. If the history's latest version was created later than the given one,
// Append returns ErrOutOfOrder.
func (s *ShardedStore) Append(ctx context.Context, o *entity.Object) error {
	if o == nil {
		return errors.New("entity version must be non-nil")
	}
	k := o.Key()
	if k.Type == version.Undefined {
		return fmt.Errorf("entity %s has no item type", k)
	}
	_, err := s.appendTo(ctx, k, func(history) (*entity.Object, error) {
		return o, nil
	})
	return err
}

// Delete marks the entity with the given key as deleted, appending a version that supersedes its
// latest one at the given time. It returns that deleted version.
//
// If the store holds no versions of the entity, Delete returns ErrEntityDoesNotExist. If the
// entity's latest version already marks it as deleted, Delete returns ErrEntityDeleted.
func (s *ShardedStore) Delete(ctx context.Context, k entity.Key, changeset version.ChangesetID, ts version.Timestamp, user string) (*entity.Object, error) {
	return s.appendTo(ctx, k, func(h history) (*entity.Object, error) {
		if len(h) == 0 {
			return nil, entityDoesNotExistError(k.String())
		}
		latest := h[len(h)-1]
		if !latest.Visible() {
			return nil, entityDeletedError(k.String())
		}
		return entity.Tombstone(latest, latest.Version()+1, changeset, ts, user), nil
	})
}

// History returns the versions of the entity with the given key, oldest first.
func (s *ShardedStore) History(ctx context.Context, k entity.Key) ([]*entity.Object, error) {
	h, err := s.historyFor(ctx, k)
	if err != nil {
		return nil, err
	}
	versions := make([]*entity.Object, len(h))
	copy(versions, h)
	return versions, nil
}

// Windows returns a window positioned on each version of the entity with the given key, oldest
// first.
func (s *ShardedStore) Windows(ctx context.Context, k entity.Key) ([]Window, error) {
	h, err := s.historyFor(ctx, k)
	if err != nil {
		return nil, err
	}
	return h.windows(), nil
}

// WindowAt returns the window positioned on the version of the entity with the given key that was
// valid at time t, whether or not that version marks the entity as deleted.
//
// If t precedes the entity's first version, WindowAt returns ErrEntityDoesNotExist.
func (s *ShardedStore) WindowAt(ctx context.Context, k entity.Key, t version.Timestamp) (Window, error) {
	h, err := s.historyFor(ctx, k)
	if err != nil {
		return Window{}, err
	}
	i, ok := h.indexAt(t)
	if !ok {
		return Window{}, fmt.Errorf("no version valid at %s: %w", t, entityDoesNotExistError(k.String()))
	}
	return h.windowAround(i), nil
}

// Between returns the windows positioned on the versions of the entity with the given key that
// were valid at some point in the half-open interval [from, to), oldest first.
func (s *ShardedStore) Between(ctx context.Context, k entity.Key, from, to version.Timestamp) ([]Window, error) {
	if from > to {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidInterval, from, to)
	}
	h, err := s.historyFor(ctx, k)
	if err != nil {
		return nil, err
	}
	var windows []Window
	for i := range h {
		if w := h.windowAround(i); w.Overlaps(from, to) {
			windows = append(windows, w)
		}
	}
	return windows, nil
}

// VisibleAt returns the version of the entity with the given key that was visible at time t.
//
// If the entity did not exist yet at time t, or was deleted by then, VisibleAt returns
// ErrEntityDoesNotExist.
func (s *ShardedStore) VisibleAt(ctx context.Context, k entity.Key, t version.Timestamp) (*entity.Object, error) {
	w, err := s.WindowAt(ctx, k, t)
	if err != nil {
		return nil, err
	}
	if !w.IsVisibleAt(t) {
		return nil, fmt.Errorf("deleted as of %s: %w", w.StartTime(), entityDoesNotExistError(k.String()))
	}
	return w.Curr(), nil
}
