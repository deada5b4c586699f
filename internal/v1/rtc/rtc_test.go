package rtc

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/huang-relay/pairrelay/internal/v1/coreerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	s := NewStore()
	sess := s.Create("sess-1", "app", "chan", "tok", 1)

	assert.Empty(t, sess.Participants)
	assert.Equal(t, sessionTTL, sess.ExpiresAt.Sub(sess.CreatedAt))

	got, err := s.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "app", got.AppID)
}

func TestJoinAssignsIncreasingUIDs(t *testing.T) {
	s := NewStore()
	s.Create("sess-1", "app", "chan", "tok", 1)

	j1, err := s.Join("sess-1", "alice")
	require.NoError(t, err)
	j2, err := s.Join("sess-1", "bob")
	require.NoError(t, err)

	assert.Equal(t, uint32(1000), j1.UID)
	assert.Equal(t, uint32(1001), j2.UID)
}

func TestJoinUnknownSession(t *testing.T) {
	s := NewStore()
	_, err := s.Join("nope", "alice")
	require.Error(t, err)
	assert.Equal(t, coreerr.KindNotFound, err.(*coreerr.Error).Kind)
}

func TestConcurrentJoinCap(t *testing.T) {
	s := NewStore()
	s.Create("sess-1", "app", "chan", "tok", 1)

	const attempts = 10
	var wg sync.WaitGroup
	uids := make(chan uint32, attempts)
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := s.Join("sess-1", "p")
			if err != nil {
				errs <- err
				return
			}
			uids <- info.UID
		}(i)
	}
	wg.Wait()
	close(uids)
	close(errs)

	var gotUIDs []uint32
	for u := range uids {
		gotUIDs = append(gotUIDs, u)
	}
	var gotErrs []error
	for e := range errs {
		gotErrs = append(gotErrs, e)
	}

	require.Len(t, gotUIDs, 8)
	require.Len(t, gotErrs, 2)
	for _, e := range gotErrs {
		assert.Equal(t, coreerr.KindConflict, e.(*coreerr.Error).Kind)
	}

	sort.Slice(gotUIDs, func(i, j int) bool { return gotUIDs[i] < gotUIDs[j] })
	seen := make(map[uint32]bool)
	for i, u := range gotUIDs {
		assert.Equal(t, uint32(1000+i), u)
		assert.False(t, seen[u], "uid %d assigned twice", u)
		seen[u] = true
	}
}

func TestCleanupExpired(t *testing.T) {
	s := NewStore()
	s.Create("sess-1", "app", "chan", "tok", 1)

	r := s.sessions["sess-1"]
	r.mu.Lock()
	r.expiresAt = time.Now().Add(-time.Minute)
	r.mu.Unlock()

	removed := s.CleanupExpired()
	assert.Equal(t, 1, removed)

	_, err := s.Get("sess-1")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	s := NewStore()
	s.Create("sess-1", "app", "chan", "tok", 1)

	assert.True(t, s.Delete("sess-1"))
	assert.False(t, s.Delete("sess-1"))
}
