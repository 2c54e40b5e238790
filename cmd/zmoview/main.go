// zmoview plays a ZMO motion in the terminal, showing cursor state, a frame
// timeline, the sampled joints and the frame events as they fire.
//
// Keys: space pauses, +/- change speed, r restarts, arrows and [ ] move the
// view, q or Esc quits.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/internal/assets"
	"github.com/Faultbox/rose-motion/internal/audio"
	"github.com/Faultbox/rose-motion/internal/config"
	"github.com/Faultbox/rose-motion/internal/logger"
	"github.com/Faultbox/rose-motion/internal/viewer"
)

var flagLoops = flag.Int("loops", 0, "Loop count (0 = forever)")

const (
	entity     = animation.EntityID(1)
	speedStep  = 1.25
	maxSpeed   = 16
	minSpeed   = 1.0 / 16
	eventQueue = 100
)

func main() {
	config.ParseFlags()
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zmoview [options] <file.zmo>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the viewer, so logs only go to the log file
	if err := logger.InitFromConfig(cfg.Logging, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, flag.Arg(0)); err != nil {
		logger.Error("viewer failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string) error {
	var table *animation.EventTable
	if cfg.Playback.EventTable != "" {
		t, err := animation.LoadEventTable(cfg.Playback.EventTable)
		if err != nil {
			return err
		}
		table = t
	}

	store := assets.NewStore(assets.Options{
		Workers:    cfg.Loader.Workers,
		CacheBytes: cfg.Loader.CacheMB << 20,
	})
	defer store.Close()
	for _, dir := range cfg.Data.Dirs {
		if err := store.AddDir(dir); err != nil {
			logger.Warn("skipping data directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	name := path
	if _, err := os.Stat(path); err == nil && store.AddDir(filepath.Dir(path)) == nil {
		name = filepath.Base(path)
	}

	h := store.Load(name, animation.FormJoint)
	defer store.Release(h)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()

	p := &player{
		store:  store,
		motion: h,
		loops:  *flagLoops,
		speed:  cfg.Playback.Speed,
		view:   viewer.New(screen, cfg.Viewer.EventLogLines),
		name:   path,
	}
	if cfg.Audio.Enabled {
		p.cues = newCuePlayer(cfg.Audio)
		defer p.cues.Close()
	}
	p.restart()

	env := &animation.Env{Clips: store, Events: table, Sink: &p.queue}

	eventChan := make(chan tcell.Event, eventQueue)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	delta := cfg.TickDelta()
	tick := time.NewTicker(time.Duration(float64(delta) * float64(time.Second)))
	defer tick.Stop()
	refresh := time.NewTicker(time.Second / time.Duration(cfg.Viewer.RefreshRate))
	defer refresh.Stop()

	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !p.handle(p.view.HandleKey(ev)) {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case <-tick.C:
			if p.paused {
				continue
			}
			env.Time = p.clock.Step(delta)
			p.update(env)

		case <-refresh.C:
			p.view.Draw(p.frame())
		}
	}
}

// player owns the single animation being viewed.
type player struct {
	store  *assets.Store
	motion animation.Handle
	loops  int
	speed  float32
	paused bool

	clock animation.Clock
	queue animation.EventQueue
	anim  *animation.SkeletalAnimation

	view *viewer.Viewer
	cues *audio.CuePlayer
	name string
}

// newCuePlayer loads the configured sounds. Missing files and audio devices
// are logged and leave the viewer silent.
func newCuePlayer(cfg config.AudioConfig) *audio.CuePlayer {
	cues := audio.New(cfg.Volume)
	if err := cues.LoadCues(cfg.Sounds); err != nil {
		logger.Warn("failed to load sound cues", zap.Error(err))
	}
	if err := cues.Init(); err != nil {
		logger.Warn("audio unavailable", zap.Error(err))
	}
	logger.Debug("sound cues ready", zap.Int("cues", cues.Len()))
	return cues
}

// restart plays the motion again from its first frame.
func (p *player) restart() {
	cursor := animation.Repeat(p.motion, p.loops).WithSpeed(p.speed)
	p.anim = animation.NewSkeletalAnimation(cursor, entity, nil)
	p.queue.Drain()
	p.view.ResetEvents()
}

func (p *player) update(env *animation.Env) {
	if p.anim.Skeleton == nil {
		if clip, state := p.store.Lookup(p.motion); state == animation.LoadStateLoaded {
			p.anim.Skeleton = animation.NewSkeleton(len(clip.Joints))
		}
	}

	wasCompleted := p.anim.Completed()
	p.anim.Update(env)
	for _, ev := range p.queue.Drain() {
		p.view.PushEvent(ev, env.Time.Elapsed)
		if p.cues != nil {
			p.cues.Push(ev)
		}
	}
	if !wasCompleted && p.anim.Completed() {
		logger.Debug("motion completed", zap.String("motion", p.name), zap.Float64("elapsed", env.Time.Elapsed))
	}
}

// handle applies a viewer action and reports whether the viewer keeps running.
func (p *player) handle(action viewer.Action) bool {
	switch action {
	case viewer.ActionQuit:
		return false
	case viewer.ActionTogglePause:
		p.paused = !p.paused
	case viewer.ActionFaster:
		p.setSpeed(p.speed * speedStep)
	case viewer.ActionSlower:
		p.setSpeed(p.speed / speedStep)
	case viewer.ActionRestart:
		p.restart()
	}
	return true
}

// setSpeed changes the rate and restarts, since cursor position is derived
// from time elapsed since its start.
func (p *player) setSpeed(speed float32) {
	p.speed = min(max(speed, minSpeed), maxSpeed)
	p.restart()
}

func (p *player) frame() viewer.Frame {
	f := viewer.Frame{
		Name:     p.name,
		Cursor:   &p.anim.Cursor,
		Skeleton: p.anim.Skeleton,
		Elapsed:  p.clock.Elapsed(),
		Paused:   p.paused,
	}
	if clip, state := p.store.Lookup(p.motion); state == animation.LoadStateLoaded {
		f.Clip = clip
	} else if state == animation.LoadStateFailed {
		f.Name = fmt.Sprintf("%s: %v", p.name, p.store.Err(p.motion))
	}
	return f
}
