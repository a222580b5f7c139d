package services

import (
	"context"
	"sync"
)

// MarketLocker serializes mutating calls per market. Unlock must be called
// exactly once after a successful Lock.
type MarketLocker interface {
	Lock(ctx context.Context, marketID string) (unlock func(), err error)
}

// LocalLocker is a MarketLocker for a single process. A market's entry lives
// only while some caller holds or waits for it.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

func (l *LocalLocker) acquire(marketID string) *localSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[marketID]
	if !ok {
		s = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[marketID] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) release(marketID string, s *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, marketID)
	}
}

// Lock blocks until marketID is free or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, marketID string) (func(), error) {
	s := l.acquire(marketID)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(marketID, s)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(marketID, s)
		})
	}, nil
}
