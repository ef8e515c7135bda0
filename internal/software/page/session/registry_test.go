package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"

	"github.com/matryer/is"
)

func TestRegistryCreateGet(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(context.Background(), logger.Nop(), newFakeHub(), testDeps(&countingPositioner{}), time.Minute)
	defer r.Close()

	s := r.Create(context.Background(), "browser-1")
	is.True(s.ID != "")

	got, ok := r.Get(s.ID)
	is.True(ok)
	is.Equal(got, s)

	_, ok = r.Get("missing")
	is.True(!ok)
	is.Equal(r.Count(), 1)
}

func TestRegistryCreateKeepsOwner(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(context.Background(), logger.Nop(), newFakeHub(), testDeps(&countingPositioner{}), time.Minute)
	defer r.Close()

	a := r.Create(context.Background(), "browser-1")
	b := r.Create(context.Background(), "browser-1")

	// one browser, two page loads
	is.True(a.ID != b.ID)
	is.Equal(a.Owner, "browser-1")
	is.Equal(b.Owner, "browser-1")
	is.Equal(r.Count(), 2)
}

func TestRegistryConcurrentCreateSharesSession(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(context.Background(), logger.Nop(), newFakeHub(), testDeps(&countingPositioner{}), time.Minute)
	defer r.Close()

	const callers = 16
	got := make([]*Session, callers)
	var created atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s, ok := r.CreateWithID(context.Background(), "same", "browser-1")
			if ok {
				created.Add(1)
			}
			got[i] = s
		}()
	}
	close(start)
	wg.Wait()

	is.Equal(created.Load(), int32(1))
	for _, s := range got {
		is.Equal(s, got[0])
	}
	is.True(got[0].Context().Err() == nil)
	is.Equal(r.Count(), 1)
}

func TestRegistryReleaseClosesDisconnectedPage(t *testing.T) {
	is := is.New(t)
	hub := newFakeHub()
	r := NewRegistry(context.Background(), logger.Nop(), hub, testDeps(&countingPositioner{}), time.Minute)
	r.grace = 5 * time.Millisecond
	defer r.Close()

	gone := r.Create(context.Background(), "browser-1")
	back := r.Create(context.Background(), "browser-1")
	hub.setConnected(back.ID, true)

	r.Release(context.Background(), gone.ID)
	r.Release(context.Background(), back.ID)

	waitFor(t, "release", func() bool { return gone.Context().Err() != nil })
	_, ok := r.Get(gone.ID)
	is.True(!ok)

	// a page that reconnected in time stays
	time.Sleep(20 * time.Millisecond)
	_, ok = r.Get(back.ID)
	is.True(ok)
}

func TestRegistrySweepsIdleDisconnectedPages(t *testing.T) {
	is := is.New(t)
	hub := newFakeHub()
	r := NewRegistry(context.Background(), logger.Nop(), hub, testDeps(&countingPositioner{}), time.Minute)
	defer r.Close()

	idle := r.Create(context.Background(), "browser-1")
	live := r.Create(context.Background(), "browser-1")
	hub.setConnected(live.ID, true)

	is.Equal(r.Sweep(context.Background()), 0)

	r.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	is.Equal(r.Sweep(context.Background()), 1)

	_, ok := r.Get(idle.ID)
	is.True(!ok)
	is.True(idle.Context().Err() != nil)

	_, ok = r.Get(live.ID)
	is.True(ok)
}

func TestRegistryCloseTearsDownAll(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(context.Background(), logger.Nop(), newFakeHub(), testDeps(&countingPositioner{}), time.Minute)

	a := r.Create(context.Background(), "browser-1")
	b := r.Create(context.Background(), "browser-1")
	r.Close()

	is.Equal(r.Count(), 0)
	is.True(a.Context().Err() != nil)
	is.True(b.Context().Err() != nil)
}

func TestRegistryRemove(t *testing.T) {
	is := is.New(t)
	r := NewRegistry(context.Background(), logger.Nop(), newFakeHub(), testDeps(&countingPositioner{}), time.Minute)
	defer r.Close()

	s := r.Create(context.Background(), "browser-1")
	r.Remove(s.ID)

	is.Equal(r.Count(), 0)
	is.True(s.Context().Err() != nil)
}
