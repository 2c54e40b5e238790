package main

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/internal/config"
	"github.com/Faultbox/rose-motion/internal/engine/texture"
	"github.com/Faultbox/rose-motion/internal/engine/window"
	"github.com/Faultbox/rose-motion/internal/logger"
)

// bakeGPU builds the vertex clip through the background loader with a GL
// allocator, pumping uploads on this thread until the load finishes, and
// checks the texture contents against the CPU image.
func bakeGPU(cfg *config.Config, path string) (*animation.VertexBake, error) {
	win, err := window.NewHidden("zmotool")
	if err != nil {
		return nil, err
	}
	defer win.Close()

	gpu, err := texture.NewGLAllocator()
	if err != nil {
		return nil, err
	}
	defer gpu.Close()

	store := newStore(cfg, gpu.Allocator())
	defer store.Close()

	h := store.Load(motionPath(store, path), animation.FormVertexTexture)
	for {
		gpu.Pump()
		if _, state := store.Lookup(h); state != animation.LoadStateLoading {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err := store.Wait(h); err != nil {
		return nil, err
	}

	clip, _ := store.Lookup(h)
	bake := clip.VertexBake
	img := bake.Image

	pix := gpu.ReadBack(bake.Texture, img.Width, img.Height)
	if !slices.Equal(pix, img.Pix) {
		return nil, fmt.Errorf("texture %d does not match the baked image", bake.Texture)
	}
	logger.Info("verified vertex animation texture",
		zap.Uint32("texture", bake.Texture),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
	)

	return bake, nil
}
