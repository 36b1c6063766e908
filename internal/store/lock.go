package store

import "context"

// Basis of inspiration: https://blogtitle.github.io/go-advanced-concurrency-patterns-part-3-channels/#read-write-mutexes

// shardLock is a reader/writer lock whose acquisition gives up once a Context is done.
type shardLock struct {
	writer  chan struct{}
	readers chan uint
}

func makeShardLock() shardLock {
	return shardLock{
		writer:  make(chan struct{}, 1),
		readers: make(chan uint, 1),
	}
}

// lock acquires exclusive access, reporting false if ctx is done first.
func (l shardLock) lock(ctx context.Context) bool {
	select {
	// There's only room if no other writer or readers are holding the lock.
	case l.writer <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l shardLock) unlock() {
	<-l.writer
}

// rlock acquires shared access, reporting false if ctx is done first.
func (l shardLock) rlock(ctx context.Context) bool {
	var readers uint
	select {
	case l.writer <- struct{}{}:
		// We're the first reader, and we now hold the writer slot on behalf of all readers.
	case readers = <-l.readers:
	case <-ctx.Done():
		return false
	}
	l.readers <- readers + 1
	return true
}

func (l shardLock) runlock() {
	readers := <-l.readers - 1
	if readers == 0 {
		// The last reader out releases the writer slot.
		<-l.writer
		return
	}
	// NB: We never send a nonpositive count to the readers channel.
	l.readers <- readers
}
