package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/pkg/formats"
)

func testMotion(frames uint32) []byte {
	z := &formats.ZMO{
		FPS:       30,
		NumFrames: frames,
		Channels: []formats.ZMOChannel{
			{Type: formats.ZMOChannelPosition, Index: 0, Vectors: make([][3]float32, frames)},
		},
	}
	return formats.EncodeZMO(z)
}

func TestStoreLoadDeduplicates(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()
	store.AddSource(MemSource{"3ddata/motion/walk.zmo": testMotion(4)})

	a := store.Load(`3DDATA\MOTION\WALK.ZMO`, animation.FormJoint)
	b := store.Load("3ddata/motion/walk.zmo", animation.FormJoint)
	c := store.Load("3ddata/motion/walk.zmo", animation.FormVertexTexture)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "each form gets its own clip")

	require.NoError(t, store.Wait(a))
	require.NoError(t, store.Wait(c))

	clip, state := store.Lookup(a)
	assert.Equal(t, animation.LoadStateLoaded, state)
	require.NotNil(t, clip)
	assert.Equal(t, 4, clip.NumFrames)

	vclip, _ := store.Lookup(c)
	require.NotNil(t, vclip)
	assert.NotNil(t, vclip.VertexBake)
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()

	h := store.Load("missing.zmo", animation.FormJoint)
	err := store.Wait(h)
	assert.ErrorIs(t, err, ErrNotFound)

	clip, state := store.Lookup(h)
	assert.Nil(t, clip)
	assert.Equal(t, animation.LoadStateFailed, state)
	assert.ErrorIs(t, store.Err(h), ErrNotFound)
}

func TestStoreLoadInvalid(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()
	store.AddSource(MemSource{"bad.zmo": []byte("not a motion at all, sorry")})

	h := store.Load("bad.zmo", animation.FormJoint)
	assert.ErrorIs(t, store.Wait(h), formats.ErrInvalidZMOMagic)

	_, state := store.Lookup(h)
	assert.Equal(t, animation.LoadStateFailed, state)
}

func TestStoreRelease(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()
	store.AddSource(MemSource{"walk.zmo": testMotion(2)})

	h := store.Load("walk.zmo", animation.FormJoint)
	require.NoError(t, store.Wait(h))
	require.True(t, store.Retain(h))

	store.Release(h)
	_, state := store.Lookup(h)
	assert.Equal(t, animation.LoadStateLoaded, state, "still referenced")

	store.Release(h)
	clip, state := store.Lookup(h)
	assert.Nil(t, clip)
	assert.Equal(t, animation.LoadStateUnloaded, state)
	assert.False(t, store.Retain(h))
	assert.Zero(t, store.Len())

	again := store.Load("walk.zmo", animation.FormJoint)
	assert.NotEqual(t, h, again, "handles are never reused")
	require.NoError(t, store.Wait(again))

	hits, _ := store.CacheStats()
	assert.Zero(t, hits, "cache is disabled by default")
}

func TestStoreReleaseCompletesAnimation(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()
	store.AddSource(MemSource{"walk.zmo": testMotion(10)})

	h := store.Load("walk.zmo", animation.FormJoint)
	require.NoError(t, store.Wait(h))

	anim := animation.NewSkeletalAnimation(animation.Repeat(h, animation.RepeatForever), 1, animation.NewSkeleton(1))
	var clock animation.Clock
	anim.Update(&animation.Env{Clips: store, Time: clock.Step(0.1)})
	require.False(t, anim.Completed())

	store.Release(h)
	anim.Update(&animation.Env{Clips: store, Time: clock.Step(0.1)})
	assert.True(t, anim.Completed())
}

func TestStoreInsert(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()

	clip := &animation.Clip{NumFrames: 1, FPS: 1, InterpolationInterval: 0.5}
	h := store.Insert("preloaded", clip)

	got, state := store.Lookup(h)
	assert.Equal(t, animation.LoadStateLoaded, state)
	assert.Same(t, clip, got)
	require.NoError(t, store.Wait(h))

	assert.Equal(t, h, store.Load("PRELOADED", animation.FormJoint))
}

func TestStoreSourcePriority(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()
	store.AddSource(MemSource{"walk.zmo": testMotion(2), "run.zmo": testMotion(3)})
	store.AddSource(MemSource{"walk.zmo": testMotion(5)})

	walk := store.Load("walk.zmo", animation.FormJoint)
	run := store.Load("run.zmo", animation.FormJoint)
	require.NoError(t, store.Wait(walk))
	require.NoError(t, store.Wait(run))

	clip, _ := store.Lookup(walk)
	assert.Equal(t, 5, clip.NumFrames, "last added source wins")
	clip, _ = store.Lookup(run)
	assert.Equal(t, 3, clip.NumFrames, "earlier sources are still searched")
}

func TestStoreDirSource(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "3DDATA", "MOTION")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WALK.ZMO"), testMotion(6), 0644))

	store := NewStore(Options{CacheBytes: 1 << 20})
	defer store.Close()
	require.NoError(t, store.AddDir(root))
	assert.Error(t, store.AddDir(filepath.Join(root, "nope")))

	h := store.Load(`3DDATA\MOTION\WALK.ZMO`, animation.FormJoint)
	require.NoError(t, store.Wait(h))
	clip, _ := store.Lookup(h)
	assert.Equal(t, 6, clip.NumFrames)

	// Second form reuses the cached file
	v := store.Load(`3DDATA\MOTION\WALK.ZMO`, animation.FormVertexTexture)
	require.NoError(t, store.Wait(v))
	hits, _ := store.CacheStats()
	assert.Equal(t, 1, hits)
}

func TestDirSourceIgnoresCase(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "3DDATA", "Motion")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Walk.ZMO"), testMotion(4), 0644))

	src, err := NewDirSource(root)
	require.NoError(t, err)

	want := testMotion(4)
	for _, path := range []string{
		"3DDATA/Motion/Walk.ZMO",
		"3ddata/motion/walk.zmo",
		`3DDATA\MOTION\WALK.zmo`,
	} {
		data, err := src.Read(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, data, path)
	}

	_, err = src.Read("3ddata/motion/run.zmo")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = src.Read("3ddata/missing/walk.zmo")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSpellingsShareOneFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Jump.zmo"), testMotion(5), 0644))

	store := NewStore(Options{})
	defer store.Close()
	require.NoError(t, store.AddDir(root))

	lower := store.Load("jump.zmo", animation.FormJoint)
	require.NoError(t, store.Wait(lower))
	upper := store.Load("JUMP.ZMO", animation.FormJoint)
	assert.Equal(t, lower, upper)

	clip, state := store.Lookup(upper)
	require.Equal(t, animation.LoadStateLoaded, state)
	assert.Equal(t, 5, clip.NumFrames)
}

func TestStoreAllocator(t *testing.T) {
	var calls atomic.Int32
	store := NewStore(Options{Allocator: func(*animation.FloatImage) (uint32, error) {
		return uint32(calls.Add(1)), nil
	}})
	defer store.Close()
	store.AddSource(MemSource{"fx.zmo": testMotion(2)})

	h := store.Load("fx.zmo", animation.FormVertexTexture)
	require.NoError(t, store.Wait(h))
	clip, _ := store.Lookup(h)
	assert.Equal(t, uint32(1), clip.VertexBake.Texture)
}

// blockingSource records how many reads run at once.
type blockingSource struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
	data    []byte
}

func (b *blockingSource) Read(string) ([]byte, error) {
	n := b.active.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	<-b.release
	b.active.Add(-1)
	return b.data, nil
}

func TestStoreBoundsWorkers(t *testing.T) {
	src := &blockingSource{release: make(chan struct{}), data: testMotion(1)}
	store := NewStore(Options{Workers: 2})
	store.AddSource(src)

	var handles []animation.Handle
	for _, p := range []string{"a.zmo", "b.zmo", "c.zmo", "d.zmo", "e.zmo"} {
		handles = append(handles, store.Load(p, animation.FormJoint))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range handles {
			src.release <- struct{}{}
		}
	}()

	for _, h := range handles {
		require.NoError(t, store.Wait(h))
	}
	wg.Wait()
	store.Close()

	assert.LessOrEqual(t, src.peak.Load(), int32(2))
}

func TestStoreLoadAfterClose(t *testing.T) {
	store := NewStore(Options{})
	store.Close()

	h := store.Load("walk.zmo", animation.FormJoint)
	assert.True(t, errors.Is(store.Wait(h), ErrClosed))
}

func TestStoreWaitUnknown(t *testing.T) {
	store := NewStore(Options{})
	defer store.Close()
	assert.Error(t, store.Wait(99))
}
