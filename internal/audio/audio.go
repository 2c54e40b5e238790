// Package audio plays the sound cues attached to motion frame events.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/animation"
	"github.com/Faultbox/rose-motion/internal/logger"
)

// DefaultSampleRate is the rate cues are decoded to and the speaker runs at.
const DefaultSampleRate = beep.SampleRate(44100)

// ErrNotInitialized is returned when playing before Init.
var ErrNotInitialized = errors.New("audio not initialized")

// CuePlayer maps event flags to short WAV clips and mixes them on demand.
type CuePlayer struct {
	mu sync.RWMutex

	initialized bool
	sampleRate  beep.SampleRate
	volume      float64 // 0.0 to 1.0

	mixer *beep.Mixer
	cues  map[animation.EventFlags]*beep.Buffer
}

var _ animation.EventSink = (*CuePlayer)(nil)

// New creates a cue player with the given volume.
func New(volume float64) *CuePlayer {
	return &CuePlayer{
		sampleRate: DefaultSampleRate,
		volume:     clamp(volume, 0, 1),
		mixer:      &beep.Mixer{},
		cues:       make(map[animation.EventFlags]*beep.Buffer),
	}
}

// Init opens the speaker and starts the cue mixer.
func (p *CuePlayer) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/30)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p.mixer)

	p.initialized = true
	return nil
}

// Close stops every playing cue and releases the speaker.
func (p *CuePlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	speaker.Clear()
	speaker.Close()
	p.initialized = false
}

// SetVolume sets the cue volume (0.0 to 1.0).
func (p *CuePlayer) SetVolume(vol float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clamp(vol, 0, 1)
}

// Volume returns the cue volume.
func (p *CuePlayer) Volume() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// LoadCue decodes WAV data and binds it to flag, replacing any earlier cue.
func (p *CuePlayer) LoadCue(flag animation.EventFlags, data []byte) error {
	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}
	defer streamer.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Resample if needed
	var src beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		src = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}

	buf := beep.NewBuffer(beep.Format{SampleRate: p.sampleRate, NumChannels: 2, Precision: 2})
	buf.Append(src)
	if err := streamer.Err(); err != nil {
		return fmt.Errorf("decode wav: %w", err)
	}

	p.cues[flag] = buf
	return nil
}

// LoadCues reads a table of flag names to WAV files.
func (p *CuePlayer) LoadCues(sounds map[string]string) error {
	var errs []error
	for name, path := range sounds {
		flag, err := animation.ParseEventFlag(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("sound for %s: %w", name, err))
			continue
		}
		if err := p.LoadCue(flag, data); err != nil {
			errs = append(errs, fmt.Errorf("sound for %s: %w", name, err))
			continue
		}
		logger.Debug("loaded sound cue", zap.String("event", name), zap.String("path", path))
	}
	return errors.Join(errs...)
}

// Len returns the number of bound cues.
func (p *CuePlayer) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cues)
}

// Play starts every cue whose flag is set in flags and returns how many started.
func (p *CuePlayer) Play(flags animation.EventFlags) (int, error) {
	p.mu.RLock()
	initialized := p.initialized
	p.mu.RUnlock()

	if !initialized {
		return 0, ErrNotInitialized
	}

	speaker.Lock()
	defer speaker.Unlock()
	return p.start(flags), nil
}

// Push plays the cues of a delivered frame event.
func (p *CuePlayer) Push(ev animation.FrameEvent) {
	if _, err := p.Play(ev.Flags); err != nil {
		logger.Debug("sound cue skipped", zap.Stringer("flags", ev.Flags), zap.Error(err))
	}
}

// start adds the matching cues to the mixer. Callers hold the speaker lock
// while the speaker is running.
func (p *CuePlayer) start(flags animation.EventFlags) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	started := 0
	for flag, buf := range p.cues {
		if flags&flag == 0 {
			continue
		}
		p.mixer.Add(&effects.Volume{
			Streamer: buf.Streamer(0, buf.Len()),
			Base:     2,
			Volume:   gain(p.volume),
			Silent:   p.volume <= 0,
		})
		started++
	}
	return started
}

// gain maps a 0-1 volume to the exponent of an effects.Volume with Base 2,
// which scales samples by 2^exponent.
func gain(vol float64) float64 {
	if vol <= 0 {
		return -100
	}
	return math.Log2(vol)
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
