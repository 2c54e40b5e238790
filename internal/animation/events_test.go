package animation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventTable = `
events:
  10: [SOUND_FOOTSTEP]
  21: [EFFECT_WEAPON_ATTACK_HIT, sound_weapon_attack_hit]
  30: []
`

func TestParseEventTable(t *testing.T) {
	table, err := ParseEventTable([]byte(testEventTable))
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, EventSoundFootstep, table.Flags(10))
	assert.Equal(t, EventEffectWeaponAttackHit|EventSoundWeaponAttackHit, table.Flags(21))
	assert.Zero(t, table.Flags(30))
	assert.Zero(t, table.Flags(99))
}

func TestParseEventTableUnknownFlag(t *testing.T) {
	_, err := ParseEventTable([]byte("events:\n  1: [SOUND_EXPLOSION]\n"))
	assert.ErrorIs(t, err, ErrUnknownEventFlag)

	_, err = ParseEventTable([]byte("events: [1, 2"))
	assert.Error(t, err)
}

func TestLoadEventTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testEventTable), 0644))

	table, err := LoadEventTable(path)
	require.NoError(t, err)
	assert.Equal(t, EventSoundFootstep, table.Flags(10))

	_, err = LoadEventTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEventTableNil(t *testing.T) {
	var table *EventTable
	assert.Zero(t, table.Flags(1))
	assert.Zero(t, table.Len())
}

func TestEventFlagsString(t *testing.T) {
	assert.Equal(t, "NONE", EventFlags(0).String())
	assert.Equal(t, "SOUND_FOOTSTEP", EventSoundFootstep.String())
	assert.Equal(t, "EFFECT_WEAPON_ATTACK_HIT|APPLY_PENDING_SKILL_EFFECT",
		(EventEffectWeaponAttackHit | EventApplyPendingSkillEffect).String())
	assert.Equal(t, "BIT_31", EventFlags(1<<31).String())
}

func TestParseEventFlag(t *testing.T) {
	f, err := ParseEventFlag("effect_skill_casting_2")
	require.NoError(t, err)
	assert.Equal(t, EventEffectSkillCasting2, f)
}

func TestEventQueue(t *testing.T) {
	var q EventQueue
	q.Push(FrameEvent{Entity: 1, EventID: 10, Flags: EventSoundFootstep})
	q.Push(FrameEvent{Entity: 2, EventID: 21, Flags: EventSoundWeaponAttackHit})
	assert.Equal(t, 2, q.Len())

	events := q.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, EntityID(1), events[0].Entity)
	assert.Equal(t, EntityID(2), events[1].Entity)

	assert.Zero(t, q.Len())
	assert.Empty(t, q.Drain())
}
