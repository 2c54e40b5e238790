// Package assets loads motion clips in the background and hands out
// reference-counted handles to them.
package assets

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/internal/logger"
)

// ErrClosed is returned by loads issued after Close.
var ErrClosed = errors.New("asset store closed")

// Options configures a Store.
type Options struct {
	// Workers bounds the number of clips decoded at once. Zero means 4.
	Workers int
	// CacheBytes is the budget of the raw file cache. Zero disables it.
	CacheBytes int
	// Allocator uploads vertex-animation bakes. Nil keeps them on the CPU.
	Allocator animation.ImageAllocator
}

type clipKey struct {
	path string
	form animation.ClipForm
}

type entry struct {
	key   clipKey
	path  string
	clip  *animation.Clip
	state animation.LoadState
	err   error
	refs  int
	done  chan struct{}
}

// Store resolves motion paths to clips. Loads run in the background and the
// same path and form is only ever loaded once while referenced.
type Store struct {
	mu      sync.Mutex
	sources []Source
	entries map[animation.Handle]*entry
	byKey   map[clipKey]animation.Handle
	next    animation.Handle
	closed  bool

	cache *Cache
	alloc animation.ImageAllocator
	sem   chan struct{}
	wg    sync.WaitGroup
}

var _ animation.ClipSource = (*Store)(nil)

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Store{
		entries: make(map[animation.Handle]*entry),
		byKey:   make(map[clipKey]animation.Handle),
		cache:   NewCache(opts.CacheBytes),
		alloc:   opts.Allocator,
		sem:     make(chan struct{}, workers),
	}
}

// AddSource adds a source to the store.
// Sources are searched in reverse order (last added = highest priority).
func (s *Store) AddSource(src Source) {
	s.mu.Lock()
	s.sources = append(s.sources, src)
	s.mu.Unlock()
}

// AddDir adds a data directory as a source.
func (s *Store) AddDir(root string) error {
	src, err := NewDirSource(root)
	if err != nil {
		return err
	}
	s.AddSource(src)
	return nil
}

// Load returns a handle to the clip at path built in form, starting a
// background load if it is not already loaded or loading. Every call takes a
// reference that must be given back with Release.
func (s *Store) Load(path string, form animation.ClipForm) animation.Handle {
	key := clipKey{path: NormalizePath(path), form: form}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.byKey[key]; ok {
		s.entries[h].refs++
		return h
	}

	h, e := s.newEntry(key, path)
	if s.closed {
		e.state = animation.LoadStateFailed
		e.err = ErrClosed
		close(e.done)
		return h
	}

	e.state = animation.LoadStateLoading
	s.wg.Add(1)
	go s.load(h, e)

	return h
}

// Insert registers an already built clip under name and returns a handle to it.
func (s *Store) Insert(name string, clip *animation.Clip) animation.Handle {
	key := clipKey{path: NormalizePath(name), form: clip.Form()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byKey[key]; ok {
		s.drop(old)
	}

	h, e := s.newEntry(key, name)
	e.clip = clip
	e.state = animation.LoadStateLoaded
	close(e.done)
	return h
}

func (s *Store) newEntry(key clipKey, path string) (animation.Handle, *entry) {
	s.next++
	h := s.next
	e := &entry{key: key, path: path, refs: 1, done: make(chan struct{})}
	s.entries[h] = e
	s.byKey[key] = h
	return h, e
}

func (s *Store) load(h animation.Handle, e *entry) {
	defer s.wg.Done()

	s.sem <- struct{}{}
	start := time.Now()
	clip, err := s.build(e)
	<-s.sem

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(e.done)

	if s.entries[h] != e {
		// Released while loading
		return
	}

	if err != nil {
		e.state = animation.LoadStateFailed
		e.err = err
		logger.Warn("failed to load motion",
			zap.String("path", e.path),
			zap.Stringer("form", e.key.form),
			zap.Error(err),
		)
		return
	}

	e.clip = clip
	e.state = animation.LoadStateLoaded
	logger.Debug("loaded motion",
		zap.String("path", e.path),
		zap.Stringer("form", e.key.form),
		zap.Int("frames", clip.NumFrames),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Store) build(e *entry) (*animation.Clip, error) {
	data, err := s.read(e.path)
	if err != nil {
		return nil, err
	}
	clip, err := animation.BuildClip(data, e.key.form, s.alloc)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", e.path, err)
	}
	return clip, nil
}

// read returns the raw contents of path from the cache or the sources.
func (s *Store) read(path string) ([]byte, error) {
	key := NormalizePath(path)
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	s.mu.Lock()
	sources := append([]Source(nil), s.sources...)
	s.mu.Unlock()

	for i := len(sources) - 1; i >= 0; i-- {
		data, err := sources[i].Read(path)
		if err == nil {
			s.cache.Set(key, data)
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// Lookup returns the clip behind h once it has loaded.
func (s *Store) Lookup(h animation.Handle) (*animation.Clip, animation.LoadState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[h]
	if !ok {
		return nil, animation.LoadStateUnloaded
	}
	return e.clip, e.state
}

// Err returns why the load behind h failed, or nil.
func (s *Store) Err(h animation.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[h]; ok {
		return e.err
	}
	return nil
}

// Wait blocks until the load behind h has finished and returns its error.
func (s *Store) Wait(h animation.Handle) error {
	s.mu.Lock()
	e, ok := s.entries[h]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown motion handle %d", h)
	}

	<-e.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return e.err
}

// Retain takes another reference to h. It reports false if h is no longer held.
func (s *Store) Retain(h animation.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[h]
	if !ok {
		return false
	}
	e.refs++
	return true
}

// Release gives back a reference. When the last one is released the clip is
// unloaded and animations still playing it complete on their next tick.
func (s *Store) Release(h animation.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[h]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		s.drop(h)
	}
}

func (s *Store) drop(h animation.Handle) {
	e := s.entries[h]
	delete(s.entries, h)
	if s.byKey[e.key] == h {
		delete(s.byKey, e.key)
	}
	logger.Debug("unloaded motion", zap.String("path", e.path), zap.Stringer("form", e.key.form))
}

// Len returns the number of held handles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CacheStats returns hit and miss counts of the raw file cache.
func (s *Store) CacheStats() (hits, misses int) {
	return s.cache.Stats()
}

// Close waits for in-flight loads and drops every clip.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[animation.Handle]*entry)
	s.byKey = make(map[clipKey]animation.Handle)
	s.cache.Clear()
}
