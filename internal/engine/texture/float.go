// Package texture uploads vertex-animation bakes to the GPU.
package texture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/internal/logger"
)

// ErrClosed is returned for uploads requested after the allocator was closed.
var ErrClosed = errors.New("texture allocator closed")

type upload struct {
	img    *animation.FloatImage
	result chan uploadResult
}

type uploadResult struct {
	id  uint32
	err error
}

// GLAllocator creates RGBA32F textures from baked images.
//
// Upload must run on the thread that owns the GL context. Clips built on
// background loaders go through Allocator instead, which queues the image
// until the GL thread calls Pump.
type GLAllocator struct {
	mu       sync.Mutex
	pending  []upload
	textures []uint32
	closed   bool
}

// NewGLAllocator loads the GL function pointers for the current context.
func NewGLAllocator() (*GLAllocator, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl.Init failed: %w", err)
	}
	logger.Debug("GL initialized", zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))))
	return &GLAllocator{}, nil
}

// Upload creates a texture holding img. Texels are sampled exactly, without
// filtering or wrapping, so frame columns never bleed into each other.
func (a *GLAllocator) Upload(img *animation.FloatImage) (uint32, error) {
	if img.Width == 0 || img.Height == 0 {
		return 0, fmt.Errorf("empty vertex animation image %dx%d", img.Width, img.Height)
	}

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	if int32(img.Width) > maxSize || int32(img.Height) > maxSize {
		return 0, fmt.Errorf("vertex animation image %dx%d exceeds GL limit %d", img.Width, img.Height, maxSize)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(img.Width), int32(img.Height), 0,
		gl.RGBA, gl.FLOAT, gl.Ptr(img.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return 0, fmt.Errorf("uploading vertex animation texture: GL error 0x%x", code)
	}

	a.mu.Lock()
	a.textures = append(a.textures, id)
	a.mu.Unlock()

	logger.Debug("uploaded vertex animation texture",
		zap.Uint32("id", id),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
	)
	return id, nil
}

// ReadBack returns the contents of a texture created by Upload.
func (a *GLAllocator) ReadBack(id uint32, width, height int) []float32 {
	pix := make([]float32, width*height*4)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.FLOAT, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return pix
}

// Allocator returns an ImageAllocator that is safe to call from any goroutine.
// Each call blocks until the GL thread has run Pump.
func (a *GLAllocator) Allocator() animation.ImageAllocator {
	return func(img *animation.FloatImage) (uint32, error) {
		req := upload{img: img, result: make(chan uploadResult, 1)}

		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return 0, ErrClosed
		}
		a.pending = append(a.pending, req)
		a.mu.Unlock()

		res := <-req.result
		return res.id, res.err
	}
}

// Pump performs every queued upload. It must be called on the GL thread and
// returns the number of uploads processed.
func (a *GLAllocator) Pump() int {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, req := range pending {
		id, err := a.Upload(req.img)
		req.result <- uploadResult{id: id, err: err}
	}
	return len(pending)
}

// Close fails queued uploads and deletes every texture this allocator created.
// It must be called on the GL thread.
func (a *GLAllocator) Close() {
	a.mu.Lock()
	a.closed = true
	pending := a.pending
	textures := a.textures
	a.pending = nil
	a.textures = nil
	a.mu.Unlock()

	for _, req := range pending {
		req.result <- uploadResult{err: ErrClosed}
	}
	if len(textures) > 0 {
		gl.DeleteTextures(int32(len(textures)), &textures[0])
	}
}
