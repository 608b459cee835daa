// this code is adapted from https://github.com/ryogrid/SamehadaDB (common/rwlatch.go)

package common

import "sync"

// ReaderWriterLatch is the per-frame short-term synchronization primitive
// used for B+-tree crabbing and general page access. Unlike a plain
// sync.RWMutex, it gives writers preference: once a writer is waiting, new
// readers block behind it instead of being allowed to keep joining ahead
// of the writer forever (spec.md §9: "a writer waiting for readers must
// block new readers from entering while it waits, otherwise writer
// starvation is possible under steady read load").
type ReaderWriterLatch struct {
	mu            sync.Mutex
	cond          *sync.Cond
	readers       int32
	writerActive  bool
	writersWaiting int32
}

// NewRWLatch constructs a writer-preference reader/writer latch.
func NewRWLatch() *ReaderWriterLatch {
	l := &ReaderWriterLatch{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// RLock blocks while a writer holds or is waiting for the latch.
func (l *ReaderWriterLatch) RLock() {
	l.mu.Lock()
	for l.writerActive || l.writersWaiting > 0 {
		l.cond.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

// RUnlock releases a previously acquired read hold.
func (l *ReaderWriterLatch) RUnlock() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	l.mu.Unlock()
}

// WLock blocks until no readers and no other writer hold the latch. While
// waiting it is counted in writersWaiting, which blocks new readers from
// joining ahead of it.
func (l *ReaderWriterLatch) WLock() {
	l.mu.Lock()
	l.writersWaiting++
	for l.writerActive || l.readers > 0 {
		l.cond.Wait()
	}
	l.writersWaiting--
	l.writerActive = true
	l.mu.Unlock()
}

// WUnlock releases a previously acquired write hold.
func (l *ReaderWriterLatch) WUnlock() {
	l.mu.Lock()
	l.writerActive = false
	l.cond.Broadcast()
	l.mu.Unlock()
}

// PrintDebugInfo reports the latch's current reader/writer occupancy.
func (l *ReaderWriterLatch) PrintDebugInfo() {
	l.mu.Lock()
	defer l.mu.Unlock()
	ShPrintf(Debug, "rwlatch: readers=%d writerActive=%v writersWaiting=%d\n",
		l.readers, l.writerActive, l.writersWaiting)
}
