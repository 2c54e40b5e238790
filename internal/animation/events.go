package animation

import (
	"errors"
	"fmt"
	"math/bits"
	"os"
	"strings"
	"sync"

	"github.com/kelindar/intmap"
	"gopkg.in/yaml.v3"
)

// EventFlags describes what a frame event triggers in the game.
type EventFlags uint32

const (
	EventEffectWeaponAttackHit EventFlags = 1 << iota
	EventEffectWeaponFireBullet
	EventEffectSkillFireBullet
	EventEffectSkillFireDummyBullet
	EventEffectSkillAction
	EventEffectSkillHit
	EventEffectSkillDummyHit0
	EventEffectSkillDummyHit1
	EventEffectSkillCasting0
	EventEffectSkillCasting1
	EventEffectSkillCasting2
	EventEffectSkillCasting3
	EventSoundFootstep
	EventSoundMoveVehicleDummy1
	EventSoundMoveVehicleDummy2
	EventSoundWeaponAttackStart
	EventSoundWeaponAttackHit
	EventSoundWeaponFireBullet
	EventSoundSkillFireBullet
	EventSoundSkillHit
	EventSoundSkillDummyHit0
	EventSoundSkillDummyHit1
	EventApplyPendingSkillEffect
)

var eventFlagNames = [...]string{
	"EFFECT_WEAPON_ATTACK_HIT",
	"EFFECT_WEAPON_FIRE_BULLET",
	"EFFECT_SKILL_FIRE_BULLET",
	"EFFECT_SKILL_FIRE_DUMMY_BULLET",
	"EFFECT_SKILL_ACTION",
	"EFFECT_SKILL_HIT",
	"EFFECT_SKILL_DUMMY_HIT_0",
	"EFFECT_SKILL_DUMMY_HIT_1",
	"EFFECT_SKILL_CASTING_0",
	"EFFECT_SKILL_CASTING_1",
	"EFFECT_SKILL_CASTING_2",
	"EFFECT_SKILL_CASTING_3",
	"SOUND_FOOTSTEP",
	"SOUND_MOVE_VEHICLE_DUMMY1",
	"SOUND_MOVE_VEHICLE_DUMMY2",
	"SOUND_WEAPON_ATTACK_START",
	"SOUND_WEAPON_ATTACK_HIT",
	"SOUND_WEAPON_FIRE_BULLET",
	"SOUND_SKILL_FIRE_BULLET",
	"SOUND_SKILL_HIT",
	"SOUND_SKILL_DUMMY_HIT_0",
	"SOUND_SKILL_DUMMY_HIT_1",
	"APPLY_PENDING_SKILL_EFFECT",
}

// ErrUnknownEventFlag is returned when an event table names a flag that does not exist.
var ErrUnknownEventFlag = errors.New("unknown event flag")

// ParseEventFlag returns the flag with the given name.
func ParseEventFlag(name string) (EventFlags, error) {
	for i, n := range eventFlagNames {
		if strings.EqualFold(n, name) {
			return EventFlags(1) << i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventFlag, name)
}

// String returns the set flag names joined with "|".
func (f EventFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var names []string
	for rest := f; rest != 0; rest &= rest - 1 {
		i := bits.TrailingZeros32(uint32(rest))
		if i < len(eventFlagNames) {
			names = append(names, eventFlagNames[i])
		} else {
			names = append(names, fmt.Sprintf("BIT_%d", i))
		}
	}
	return strings.Join(names, "|")
}

// EventTable maps the event ids authored in motion files to game flags.
type EventTable struct {
	flags *intmap.Map
}

// NewEventTable creates an empty table.
func NewEventTable() *EventTable {
	return &EventTable{flags: intmap.New(64, .95)}
}

// Set maps id to flags.
func (t *EventTable) Set(id uint16, flags EventFlags) {
	t.flags.Store(uint32(id), uint32(flags))
}

// Flags returns the flags for id, 0 when unmapped or when t is nil.
func (t *EventTable) Flags(id uint16) EventFlags {
	if t == nil {
		return 0
	}
	v, ok := t.flags.Load(uint32(id))
	if !ok {
		return 0
	}
	return EventFlags(v)
}

// Len returns the number of mapped ids.
func (t *EventTable) Len() int {
	if t == nil {
		return 0
	}
	return t.flags.Count()
}

type eventTableFile struct {
	Events map[uint16][]string `yaml:"events"`
}

// ParseEventTable reads a YAML table of the form
//
//	events:
//	  10: [SOUND_FOOTSTEP]
//	  21: [EFFECT_WEAPON_ATTACK_HIT, SOUND_WEAPON_ATTACK_HIT]
func ParseEventTable(data []byte) (*EventTable, error) {
	var file eventTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse event table: %w", err)
	}

	table := NewEventTable()
	for id, names := range file.Events {
		var flags EventFlags
		for _, name := range names {
			flag, err := ParseEventFlag(name)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", id, err)
			}
			flags |= flag
		}
		table.Set(id, flags)
	}
	return table, nil
}

// LoadEventTable reads an event table from a YAML file.
func LoadEventTable(path string) (*EventTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event table: %w", err)
	}
	return ParseEventTable(data)
}

// FrameEvent is emitted when a skeletal animation crosses a frame carrying an event.
type FrameEvent struct {
	Entity  EntityID
	EventID uint16
	Flags   EventFlags
}

// EventSink receives frame events as they are crossed.
type EventSink interface {
	Push(ev FrameEvent)
}

// EventQueue is an EventSink that buffers events until drained.
type EventQueue struct {
	mu     sync.Mutex
	events []FrameEvent
}

// Push appends ev to the queue.
func (q *EventQueue) Push(ev FrameEvent) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// Drain returns every queued event in arrival order and empties the queue.
func (q *EventQueue) Drain() []FrameEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
