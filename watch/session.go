package watch

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/ZephyrDeng/bloat-analyzer-mcp/analyzer"
	"github.com/ZephyrDeng/bloat-analyzer-mcp/symtree"
)

// Result is one published build.
type Result struct {
	Tree    *symtree.Tree
	Seq     uint64 // build-sequence token; larger is newer
	Path    string
	Hash    uint64 // xxhash of the file content the tree was built from
	BuiltAt time.Time
}

// Options configures a Session.
type Options struct {
	Build    symtree.Options
	Debounce time.Duration
	// OnUpdate is called after every accepted build, from the goroutine that built it.
	// Calls never overlap and their Seq values strictly increase.
	OnUpdate func(Result)
}

// Session keeps the tree of one symbol export current while the file changes.
//
// Each rebuild takes a sequence token before it starts. A finished build is only published
// if no build with a larger token has been published already, so a slow, older build
// never replaces a newer one.
type Session struct {
	path    string
	opts    Options
	watcher *fsnotify.Watcher

	seq atomic.Uint64

	mu     sync.RWMutex
	latest *Result

	// deliverMu makes publish and OnUpdate one step, so callbacks see increasing Seq.
	deliverMu sync.Mutex

	wg sync.WaitGroup
}

// NewSession builds the initial tree and starts watching the file's directory.
func NewSession(path string, opts Options) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	s := &Session{path: abs, opts: opts}
	if _, _, err := s.Rebuild(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// editors often replace files instead of writing them, so watch the directory
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	s.watcher = watcher
	return s, nil
}

// Latest returns the most recently published build.
func (s *Session) Latest() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Result{}, false
	}
	return *s.latest, true
}

// Rebuild reads and builds the file now. It reports whether the result was published;
// unchanged content and stale builds are not.
func (s *Session) Rebuild() (Result, bool, error) {
	token := s.seq.Add(1)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Result{}, false, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	hash := xxhash.Sum64(data)
	if cur, ok := s.Latest(); ok && cur.Hash == hash {
		return cur, false, nil
	}

	var rows []symtree.RawRow
	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		rows, err = analyzer.LoadRowsJSON(bytes.NewReader(data))
	} else {
		rows, err = analyzer.LoadRowsCSV(bytes.NewReader(data))
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	tree, _ := symtree.BuildHierarchyWithOptions(rows, s.opts.Build)

	res := Result{Tree: tree, Seq: token, Path: s.path, Hash: hash, BuiltAt: time.Now()}
	if !s.deliver(res) {
		log.Printf("Discarding stale build #%d of %s", token, s.path)
		return res, false, nil
	}
	return res, true, nil
}

// deliver publishes res and runs OnUpdate for it. A build that loses to a newer one
// is neither published nor reported.
func (s *Session) deliver(res Result) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.publish(res) {
		return false
	}
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(res)
	}
	return true
}

// publish installs res unless a newer build is already visible.
func (s *Session) publish(res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil && s.latest.Seq >= res.Seq {
		return false
	}
	s.latest = &res
	return true
}

// Run dispatches debounced rebuilds until ctx is cancelled, then waits for in-flight builds.
func (s *Session) Run(ctx context.Context) error {
	defer s.wg.Wait()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.opts.Debounce)
			} else {
				timer.Reset(s.opts.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if _, _, err := s.Rebuild(); err != nil {
					log.Printf("Rebuild of %s failed: %v", s.path, err)
				}
			}()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// Close stops watching. Run returns once its channels close.
func (s *Session) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
