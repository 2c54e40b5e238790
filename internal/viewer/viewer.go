// Package viewer draws live motion playback state to a terminal.
package viewer

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/internal/engine/camera"
	"github.com/Faultbox/rose-motion/pkg/math"
)

// Action is what a key press asks the playback loop to do.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionTogglePause
	ActionFaster
	ActionSlower
	ActionRestart
)

// Frame is a snapshot of everything drawn in one refresh.
type Frame struct {
	Name     string
	Clip     *animation.Clip
	Cursor   *animation.Cursor
	Skeleton *animation.Skeleton
	Elapsed  float64
	Paused   bool
}

var (
	styleText     = tcell.StyleDefault
	styleLabel    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTitle    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleTimeline = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMarker   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleEvent    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleJoint    = tcell.StyleDefault.Foreground(tcell.ColorAqua)
)

const (
	panelWidth = 56
	maxJoints  = 6
)

// Viewer renders Frames to a tcell screen and keeps a rolling event log.
type Viewer struct {
	screen   tcell.Screen
	orbit    *camera.OrbitCamera
	log      []string
	logLines int
	fitted   bool
}

// New creates a viewer drawing to an initialized screen.
func New(screen tcell.Screen, logLines int) *Viewer {
	return &Viewer{
		screen:   screen,
		orbit:    camera.NewOrbitCamera(),
		logLines: max(logLines, 1),
	}
}

// PushEvent appends a delivered frame event to the log.
func (v *Viewer) PushEvent(ev animation.FrameEvent, elapsed float64) {
	v.log = append(v.log, fmt.Sprintf("%7.2fs  #%-4d %s", elapsed, ev.EventID, ev.Flags))
	if len(v.log) > v.logLines {
		v.log = v.log[len(v.log)-v.logLines:]
	}
}

// Events returns the lines currently in the event log, oldest first.
func (v *Viewer) Events() []string {
	return v.log
}

// ResetEvents empties the event log.
func (v *Viewer) ResetEvents() {
	v.log = nil
}

// HandleKey maps a key press to a playback action. Arrow keys and [ ] move the
// viewport camera directly.
func (v *Viewer) HandleKey(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyLeft:
		v.orbit.Rotate(-0.1, 0)
	case tcell.KeyRight:
		v.orbit.Rotate(0.1, 0)
	case tcell.KeyUp:
		v.orbit.Rotate(0, 0.1)
	case tcell.KeyDown:
		v.orbit.Rotate(0, -0.1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return ActionQuit
		case ' ':
			return ActionTogglePause
		case '+', '=':
			return ActionFaster
		case '-', '_':
			return ActionSlower
		case 'r':
			return ActionRestart
		case '[':
			v.orbit.Zoom(0.9)
		case ']':
			v.orbit.Zoom(1.1)
		}
	}
	return ActionNone
}

// Draw clears the screen, renders f and shows the result.
func (v *Viewer) Draw(f Frame) {
	v.screen.Clear()
	width, height := v.screen.Size()

	y := v.drawStatus(f)
	y = v.drawTimeline(f, y+1, min(width, panelWidth))
	y = v.drawJoints(f, y+1)
	v.drawEvents(y+1, height)

	if width > panelWidth+10 {
		v.drawViewport(f, panelWidth+2, 0, width-panelWidth-2, height)
	}

	v.screen.Show()
}

func (v *Viewer) drawStatus(f Frame) int {
	y := 0
	v.text(0, y, styleTitle, f.Name)
	y++

	if f.Clip == nil || f.Cursor == nil {
		v.text(0, y, styleLabel, "loading...")
		return y + 1
	}

	clip, c := f.Clip, f.Cursor
	v.field(0, y, "form", clip.Form().String())
	v.field(22, y, "fps", fmt.Sprintf("%d", clip.FPS))
	y++
	v.field(0, y, "frames", fmt.Sprintf("%d (%.2fs)", clip.NumFrames, clip.Duration()))
	v.field(22, y, "joints", fmt.Sprintf("%d", len(clip.Joints)))
	y++

	state := c.State().String()
	if f.Paused {
		state += " (paused)"
	}
	v.field(0, y, "state", state)
	v.field(22, y, "speed", fmt.Sprintf("%.2fx", c.Speed()))
	y++

	loops := "inf"
	if c.MaxLoopCount() != animation.RepeatForever {
		loops = fmt.Sprintf("%d", c.MaxLoopCount())
	}
	v.field(0, y, "loop", fmt.Sprintf("%d/%s", c.CurrentLoop()+1, loops))
	v.field(22, y, "time", fmt.Sprintf("%.2fs", f.Elapsed))
	y++

	v.field(0, y, "frame", fmt.Sprintf("%d -> %d  %.2f", c.CurrentFrame(), c.NextFrame(), c.FrameFract()))
	if w, blending := c.InterpolateWeight(); blending {
		v.field(22, y, "blend", fmt.Sprintf("%.2f", w))
	}
	return y + 1
}

func (v *Viewer) drawTimeline(f Frame, y, width int) int {
	if f.Clip == nil || f.Cursor == nil || width < 3 {
		return y
	}

	frames := f.Clip.NumFrames
	span := width - 2
	column := func(frame int) int {
		if frames <= 1 {
			return 1
		}
		return 1 + frame*(span-1)/(frames-1)
	}

	v.screen.SetContent(0, y, '[', nil, styleTimeline)
	for x := 1; x <= span; x++ {
		v.screen.SetContent(x, y, '-', nil, styleTimeline)
	}
	v.screen.SetContent(span+1, y, ']', nil, styleTimeline)

	for frame, id := range f.Clip.FrameEvents {
		if id != 0 {
			v.screen.SetContent(column(frame), y, '|', nil, styleEvent)
		}
	}
	v.screen.SetContent(column(f.Cursor.CurrentFrame()), y, '#', nil, styleMarker)

	return y + 1
}

func (v *Viewer) drawJoints(f Frame, y int) int {
	if f.Skeleton == nil {
		return y
	}

	for i, joint := range f.Skeleton.Joints {
		if i == maxJoints {
			v.text(0, y, styleLabel, fmt.Sprintf("... %d more", len(f.Skeleton.Joints)-maxJoints))
			return y + 1
		}
		t, r := joint.Translation, joint.Rotation
		v.text(0, y, styleLabel, fmt.Sprintf("%2d", i))
		v.text(3, y, styleText, fmt.Sprintf("t(%6.2f %6.2f %6.2f) q(%5.2f %5.2f %5.2f %5.2f)",
			t.X, t.Y, t.Z, r.X, r.Y, r.Z, r.W))
		y++
	}
	return y
}

func (v *Viewer) drawEvents(y, height int) {
	if y >= height {
		return
	}
	v.text(0, y, styleLabel, "events")
	y++
	for _, line := range v.log {
		if y >= height {
			return
		}
		v.text(0, y, styleEvent, line)
		y++
	}
}

// drawViewport plots joint translations through the orbit camera.
func (v *Viewer) drawViewport(f Frame, x0, y0, w, h int) {
	if f.Skeleton == nil || len(f.Skeleton.Joints) == 0 || w <= 0 || h <= 0 {
		return
	}

	if !v.fitted {
		v.fitBounds(f.Skeleton)
		v.fitted = true
	}

	// Terminal cells are about twice as tall as wide
	aspect := float32(w) / float32(h) / 2
	for i, joint := range f.Skeleton.Joints {
		ndc, ok := v.orbit.Project(joint.Translation, aspect)
		if !ok || ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 {
			continue
		}
		sx := x0 + int((ndc.X+1)/2*float32(w-1))
		sy := y0 + int((1-ndc.Y)/2*float32(h-1))

		r := 'o'
		if i == 0 {
			r = '@'
		}
		v.screen.SetContent(sx, sy, r, nil, styleJoint)
	}
}

func (v *Viewer) fitBounds(s *animation.Skeleton) {
	lo := s.Joints[0].Translation
	hi := lo
	for _, j := range s.Joints[1:] {
		p := j.Translation
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	v.orbit.FitToBounds(lo, hi)
}

func (v *Viewer) field(x, y int, label, value string) {
	v.text(x, y, styleLabel, label)
	v.text(x+len(label)+1, y, styleText, value)
}

func (v *Viewer) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
