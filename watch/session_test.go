package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeExport(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestSession_InitialBuildAndUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.csv")
	writeExport(t, path, "symbols,vmsize\nmain,10\napp.init,5\n")

	s, err := NewSession(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	first, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, int64(15), first.Tree.TotalSize())

	res, published, err := s.Rebuild()
	require.NoError(t, err)
	assert.False(t, published)
	assert.Equal(t, first.Seq, res.Seq)

	writeExport(t, path, "symbols,vmsize\nmain,10\napp.init,50\n")
	res, published, err = s.Rebuild()
	require.NoError(t, err)
	assert.True(t, published)
	assert.Equal(t, uint64(3), res.Seq)
	assert.Equal(t, int64(60), res.Tree.TotalSize())
}

func TestSession_StaleBuildIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.csv")
	writeExport(t, path, "symbols,vmsize\nmain,10\n")

	s, err := NewSession(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	current, _ := s.Latest()
	assert.True(t, s.publish(Result{Seq: 7, Tree: current.Tree}))
	assert.False(t, s.publish(Result{Seq: 5, Tree: current.Tree}))

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(7), latest.Seq)
}

func TestSession_UpdatesArriveInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.csv")
	writeExport(t, path, "symbols,vmsize\nmain,10\n")

	var seen []uint64
	s, err := NewSession(path, Options{
		OnUpdate: func(r Result) { seen = append(seen, r.Seq) },
	})
	require.NoError(t, err)
	defer s.Close()

	current, _ := s.Latest()
	assert.True(t, s.deliver(Result{Seq: 2, Tree: current.Tree}))
	assert.False(t, s.deliver(Result{Seq: 1, Tree: current.Tree}))
	assert.False(t, s.deliver(Result{Seq: 2, Tree: current.Tree}))

	var wg sync.WaitGroup
	for seq := uint64(3); seq <= 50; seq++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.deliver(Result{Seq: seq, Tree: current.Tree})
		}()
	}
	wg.Wait()

	require.GreaterOrEqual(t, len(seen), 3)
	assert.Equal(t, []uint64{1, 2}, seen[:2])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1], "update %d arrived after %d", seen[i], seen[i-1])
	}
	assert.Equal(t, uint64(50), seen[len(seen)-1])

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(50), latest.Seq)
}

func TestSession_MissingFile(t *testing.T) {
	_, err := NewSession(filepath.Join(t.TempDir(), "absent.csv"), Options{})
	assert.Error(t, err)
}

func TestSession_RunRebuildsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sizes.csv")
	writeExport(t, path, "symbols,vmsize\nmain,10\n")

	updates := make(chan Result, 64)
	s, err := NewSession(path, Options{
		Debounce: 20 * time.Millisecond,
		OnUpdate: func(r Result) { updates <- r },
	})
	require.NoError(t, err)
	<-updates // initial build

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	writeExport(t, path, "symbols,vmsize\nmain,10\nstd::vector<int>::push_back,90\n")

	// a truncate can be observed before the write lands, so wait for the final content
	timeout := time.After(5 * time.Second)
	for rebuilt := false; !rebuilt; {
		select {
		case r := <-updates:
			if r.Tree.TotalSize() == 100 {
				assert.Greater(t, r.Seq, uint64(1))
				rebuilt = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for rebuild")
		}
	}

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, s.Close())
}
