package animation

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/logger"
)

// Animator is one of the cursor-driven appliers.
type Animator interface {
	Update(env *Env)
	Completed() bool
}

var (
	_ Animator = (*SkeletalAnimation)(nil)
	_ Animator = (*CameraAnimation)(nil)
	_ Animator = (*MeshAnimation)(nil)
	_ Animator = (*TransformAnimation)(nil)
)

// System owns at most one animator per entity and ticks them in entity order.
type System struct {
	animators map[EntityID]Animator
	order     []EntityID
	dirty     bool
}

// NewSystem creates an empty system.
func NewSystem() *System {
	return &System{animators: make(map[EntityID]Animator)}
}

// Play attaches a to entity, replacing any animator already playing there.
func (s *System) Play(entity EntityID, a Animator) {
	if _, ok := s.animators[entity]; !ok {
		s.dirty = true
	}
	s.animators[entity] = a
}

// Stop detaches the animator of entity. Its target keeps the last written pose.
func (s *System) Stop(entity EntityID) {
	if _, ok := s.animators[entity]; ok {
		delete(s.animators, entity)
		s.dirty = true
	}
}

// Get returns the animator attached to entity.
func (s *System) Get(entity EntityID) (Animator, bool) {
	a, ok := s.animators[entity]
	return a, ok
}

// Len returns the number of attached animators.
func (s *System) Len() int {
	return len(s.animators)
}

// Update ticks every animator and returns, in entity order, the entities whose
// animation completed during this tick. Completed animators stay attached and
// keep holding their final pose until stopped.
func (s *System) Update(env *Env) []EntityID {
	if s.dirty {
		s.order = slices.Sorted(maps.Keys(s.animators))
		s.dirty = false
	}

	var completed []EntityID
	for _, entity := range s.order {
		a := s.animators[entity]
		if a.Completed() {
			continue
		}

		a.Update(env)
		if a.Completed() {
			completed = append(completed, entity)
		}
	}

	if len(completed) > 0 {
		logger.Debug("animations completed", zap.Int("count", len(completed)))
	}
	return completed
}
