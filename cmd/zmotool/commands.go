package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/internal/assets"
	"github.com/Faultbox/rose-motion/internal/config"
	"github.com/Faultbox/rose-motion/pkg/formats"
)

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zmotool info <file.zmo>")
		os.Exit(1)
	}

	zmo, err := formats.ParseZMOFile(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Motion:  %s\n", args[0])
	writeInfo(os.Stdout, zmo)
}

func writeInfo(w io.Writer, zmo *formats.ZMO) {
	duration := float64(zmo.NumFrames) / float64(zmo.FPS)
	fmt.Fprintf(w, "Form:    %s\n", guessForm(zmo))
	fmt.Fprintf(w, "FPS:     %d\n", zmo.FPS)
	fmt.Fprintf(w, "Frames:  %d (%.2fs)\n", zmo.NumFrames, duration)

	interval := "default"
	if zmo.InterpolationInterval != nil {
		interval = fmt.Sprintf("%dms", *zmo.InterpolationInterval)
	}
	fmt.Fprintf(w, "Blend:   %s\n", interval)

	events := 0
	for _, id := range zmo.FrameEvents {
		if id != 0 {
			events++
		}
	}
	fmt.Fprintf(w, "Events:  %d\n", events)
	fmt.Fprintf(w, "Channels: %d\n", len(zmo.Channels))

	// Count by type
	typeCount := make(map[formats.ZMOChannelType]int)
	for _, c := range zmo.Channels {
		typeCount[c.Type]++
	}
	types := make([]formats.ZMOChannelType, 0, len(typeCount))
	for t := range typeCount {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Fprintf(w, "  %-10s %d\n", t, typeCount[t])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  #    type       index  samples")
	for i, c := range zmo.Channels {
		fmt.Fprintf(w, "  %-4d %-10s %-6d %d\n", i, c.Type, c.Index, c.Len())
	}
}

// guessForm names the clip form a motion is meant to be built into. Skeletal
// motions carry rotations and cameras four position channels; anything else
// with per-vertex channels is a morph target.
func guessForm(zmo *formats.ZMO) string {
	positions := 0
	for _, c := range zmo.Channels {
		switch c.Type {
		case formats.ZMOChannelRotation:
			return animation.FormJoint.String()
		case formats.ZMOChannelNormal, formats.ZMOChannelAlpha, formats.ZMOChannelUV1:
			return animation.FormVertexTexture.String()
		case formats.ZMOChannelPosition:
			positions++
		}
	}
	if positions == 4 && len(zmo.Channels) == 4 {
		return animation.FormJoint.String() + " (camera)"
	}
	if positions > 0 {
		return animation.FormVertexTexture.String()
	}
	return "unknown"
}

func cmdEvents(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	loops := fs.Int("loops", 1, "Number of loops to list")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zmotool events [-loops n] <file.zmo>")
		os.Exit(1)
	}

	zmo, err := formats.ParseZMOFile(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}

	writeEvents(os.Stdout, zmo, loadEventTable(cfg), max(*loops, 1))
}

// writeEvents lists, in traversal order over loops loops, every frame carrying
// an event id with the flags the table maps it to.
func writeEvents(w io.Writer, zmo *formats.ZMO, table *animation.EventTable, loops int) {
	frames := int(zmo.NumFrames)
	count := 0
	for abs := 0; abs < frames*loops; abs++ {
		id := zmo.FrameEvents[abs%frames]
		if id == 0 {
			continue
		}
		t := float64(abs) / float64(zmo.FPS)
		prefix := fmt.Sprintf("frame %-4d %7.3fs", abs%frames, t)
		if loops > 1 {
			prefix = fmt.Sprintf("loop %-3d %s", abs/frames+1, prefix)
		}
		if table == nil {
			fmt.Fprintf(w, "%s  event %d\n", prefix, id)
		} else {
			fmt.Fprintf(w, "%s  event %-4d %s\n", prefix, id, table.Flags(id))
		}
		count++
	}
	if count == 0 {
		fmt.Fprintln(w, "no frame events")
	}
}

type simOptions struct {
	Duration float64
	Step     float32
	Loops    int
	Speed    float32
	Entities int
	Stagger  float32
	Trace    bool
}

func cmdSimulate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	duration := fs.Float64("duration", 10, "Maximum simulated time in seconds")
	step := fs.Float64("step", 0, "Tick length in seconds (0 = 1/tick-rate)")
	loops := fs.Int("loops", 1, "Loop count (0 = forever)")
	entities := fs.Int("entities", 1, "Number of instances playing the motion")
	stagger := fs.Float64("stagger", 0, "Start delay added per instance in seconds")
	trace := fs.Bool("trace", false, "Print the cursor of every instance on every tick")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zmotool simulate [-duration s] [-step s] [-loops n] [-entities n] [-stagger s] [-trace] <file.zmo>")
		os.Exit(1)
	}

	opts := simOptions{
		Duration: *duration,
		Step:     float32(*step),
		Loops:    *loops,
		Speed:    cfg.Playback.Speed,
		Entities: max(*entities, 1),
		Stagger:  float32(*stagger),
		Trace:    *trace,
	}
	if opts.Step <= 0 {
		opts.Step = cfg.TickDelta()
	}

	store := newStore(cfg, nil)
	defer store.Close()

	if err := simulate(os.Stdout, store, motionPath(store, fs.Arg(0)), loadEventTable(cfg), opts); err != nil {
		fatalf("%v", err)
	}
}

// simulate plays path on opts.Entities skeletons with a fixed tick and prints
// every frame event and completion as it happens.
func simulate(w io.Writer, store *assets.Store, path string, table *animation.EventTable, opts simOptions) error {
	h := store.Load(path, animation.FormJoint)
	defer store.Release(h)

	if err := store.Wait(h); err != nil {
		return err
	}
	clip, _ := store.Lookup(h)

	if table == nil {
		fmt.Fprintln(w, "no event table: frame events are not reported")
	}

	sys := animation.NewSystem()
	for i := 0; i < opts.Entities; i++ {
		cursor := animation.Repeat(h, opts.Loops).
			WithSpeed(opts.Speed).
			WithStartDelay(opts.Stagger * float32(i))
		sys.Play(animation.EntityID(i+1), animation.NewSkeletalAnimation(cursor, animation.EntityID(i+1), animation.NewSkeleton(len(clip.Joints))))
	}

	var (
		clock animation.Clock
		queue animation.EventQueue
	)
	env := &animation.Env{Clips: store, Events: table, Sink: &queue}

	remaining := opts.Entities
	for remaining > 0 && clock.Elapsed() < opts.Duration {
		env.Time = clock.Step(opts.Step)
		done := sys.Update(env)

		if opts.Trace {
			for i := 0; i < opts.Entities; i++ {
				a, _ := sys.Get(animation.EntityID(i + 1))
				c := &a.(*animation.SkeletalAnimation).Cursor
				fmt.Fprintf(w, "%8.3fs  entity %-3d %-9s loop %d frame %d -> %d  %.3f\n",
					env.Time.Elapsed, i+1, c.State(), c.CurrentLoop()+1, c.CurrentFrame(), c.NextFrame(), c.FrameFract())
			}
		}

		for _, ev := range queue.Drain() {
			fmt.Fprintf(w, "%8.3fs  entity %-3d event %-4d %s\n", env.Time.Elapsed, ev.Entity, ev.EventID, ev.Flags)
		}
		for _, entity := range done {
			a, _ := sys.Get(entity)
			c := &a.(*animation.SkeletalAnimation).Cursor
			fmt.Fprintf(w, "%8.3fs  entity %-3d completed at loop %d frame %d\n",
				env.Time.Elapsed, entity, c.CurrentLoop()+1, c.CurrentFrame())
			remaining--
		}
	}

	if remaining > 0 {
		fmt.Fprintf(w, "%8.3fs  stopped with %d instance(s) still playing\n", clock.Elapsed(), remaining)
	}
	return nil
}

func cmdBake(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	gpu := fs.Bool("gpu", false, "Upload the bake to an OpenGL texture and verify it")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: zmotool bake [-gpu] <file.zmo> <out.bin>")
		os.Exit(1)
	}

	var (
		bake *animation.VertexBake
		err  error
	)
	if *gpu {
		bake, err = bakeGPU(cfg, fs.Arg(0))
	} else {
		bake, err = bakeCPU(cfg, fs.Arg(0))
	}
	if err != nil {
		fatalf("%v", err)
	}

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		fatalf("%v", err)
	}
	if err := writeBake(out, bake.Image); err != nil {
		out.Close()
		fatalf("writing %s: %v", fs.Arg(1), err)
	}
	if err := out.Close(); err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Baked %s -> %s\n", fs.Arg(0), fs.Arg(1))
	fmt.Printf("  texture:  %dx%d RGBA32F\n", bake.Image.Width, bake.Image.Height)
	fmt.Printf("  channels: position=%v normal=%v uv=%v alpha=%v\n",
		bake.HasPosition, bake.HasNormal, bake.HasUV, bake.HasAlpha)
}

func bakeCPU(cfg *config.Config, path string) (*animation.VertexBake, error) {
	store := newStore(cfg, nil)
	defer store.Close()

	h := store.Load(motionPath(store, path), animation.FormVertexTexture)
	if err := store.Wait(h); err != nil {
		return nil, err
	}
	clip, _ := store.Lookup(h)
	return clip.VertexBake, nil
}

// writeBake writes the texels row by row as little-endian float32 RGBA.
func writeBake(w io.Writer, img *animation.FloatImage) error {
	if img == nil {
		return errors.New("motion has no vertex channels")
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, img.Pix); err != nil {
		return err
	}
	return bw.Flush()
}

func cmdRetime(args []string) {
	fs := flag.NewFlagSet("retime", flag.ExitOnError)
	fps := fs.Int("fps", 0, "New frame rate")
	interval := fs.Int("interval", -1, "Blend-in interval in milliseconds (-1 = keep)")
	fs.Parse(args)

	if fs.NArg() < 2 || *fps <= 0 {
		fmt.Fprintln(os.Stderr, "Usage: zmotool retime -fps <n> [-interval ms] <in.zmo> <out.zmo>")
		os.Exit(1)
	}

	zmo, err := formats.ParseZMOFile(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}

	before := zmo.FPS
	retime(zmo, uint32(*fps), *interval)

	if err := os.WriteFile(fs.Arg(1), formats.EncodeZMO(zmo), 0o644); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Retimed %s: %d -> %d fps (%.2fs)\n", fs.Arg(1), before, zmo.FPS,
		float64(zmo.NumFrames)/float64(zmo.FPS))
}

// retime changes the playback rate of zmo. A non-negative interval also
// replaces the blend-in window.
func retime(zmo *formats.ZMO, fps uint32, intervalMs int) {
	zmo.FPS = fps
	if intervalMs >= 0 {
		ms := uint32(intervalMs)
		zmo.InterpolationInterval = &ms
	}
}
