package gpu

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ResourceState is the logical usage of a shared GPU resource within a frame.
// WebGPU inserts the actual barriers; the tracker only validates that passes
// use resources in an order the frame plan declared.
type ResourceState int

const (
	StateWritable ResourceState = iota
	StateReadable
	StateCopySource
	StateCopyDest
)

func (s ResourceState) String() string {
	switch s {
	case StateWritable:
		return "Writable"
	case StateReadable:
		return "Readable"
	case StateCopySource:
		return "CopySource"
	case StateCopyDest:
		return "CopyDest"
	}
	return fmt.Sprintf("ResourceState(%d)", int(s))
}

// Resource names a tracked texture.
type Resource string

const (
	ResTopDownDepth Resource = "TopDownDepth"
	ResHeightMap    Resource = "HeightMap"
	ResConeShadows  Resource = "ConeShadows"
	ResHorizonMaps  Resource = "HorizonMaps"
)

var (
	ErrIllegalTransition = errors.New("illegal resource transition")
	ErrUnknownResource   = errors.New("unknown resource")
	ErrWrongState        = errors.New("resource in wrong state")
	ErrNotHome           = errors.New("resource not returned to home state")
)

var legalTransitions = map[ResourceState][]ResourceState{
	StateWritable:   {StateReadable, StateCopySource},
	StateReadable:   {StateWritable, StateCopyDest},
	StateCopySource: {StateWritable, StateReadable},
	StateCopyDest:   {StateReadable, StateWritable},
}

// LegalTransition reports whether a resource may move from one state to another.
// Staying in the same state is not a transition and is rejected.
func LegalTransition(from, to ResourceState) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type StateTracker struct {
	home    map[Resource]ResourceState
	current map[Resource]ResourceState
}

func NewStateTracker() *StateTracker {
	return &StateTracker{
		home:    make(map[Resource]ResourceState),
		current: make(map[Resource]ResourceState),
	}
}

// DefaultStateTracker tracks the four shared textures of a frame in their home states.
func DefaultStateTracker() *StateTracker {
	t := NewStateTracker()
	t.Register(ResTopDownDepth, StateWritable)
	t.Register(ResHeightMap, StateReadable)
	t.Register(ResConeShadows, StateWritable)
	t.Register(ResHorizonMaps, StateWritable)
	return t
}

// Register adds a resource in its home state. Registering again resets it.
func (t *StateTracker) Register(r Resource, home ResourceState) {
	t.home[r] = home
	t.current[r] = home
}

func (t *StateTracker) State(r Resource) (ResourceState, bool) {
	s, ok := t.current[r]
	return s, ok
}

func (t *StateTracker) Transition(r Resource, to ResourceState) error {
	from, ok := t.current[r]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, r)
	}
	if !LegalTransition(from, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrIllegalTransition, r, from, to)
	}
	t.current[r] = to
	return nil
}

// Require checks that r is currently in state s.
func (t *StateTracker) Require(r Resource, s ResourceState) error {
	cur, ok := t.current[r]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, r)
	}
	if cur != s {
		return fmt.Errorf("%w: %s is %s, need %s", ErrWrongState, r, cur, s)
	}
	return nil
}

// CheckHome returns an error naming every resource that is not in its home state.
func (t *StateTracker) CheckHome() error {
	var stray []string
	for r, home := range t.home {
		if t.current[r] != home {
			stray = append(stray, fmt.Sprintf("%s=%s", r, t.current[r]))
		}
	}
	if len(stray) == 0 {
		return nil
	}
	sort.Strings(stray)
	return fmt.Errorf("%w: %s", ErrNotHome, strings.Join(stray, ", "))
}

// Reset forces every resource back home, used after a dropped frame.
func (t *StateTracker) Reset() {
	for r, home := range t.home {
		t.current[r] = home
	}
}

func (t *StateTracker) Clone() *StateTracker {
	c := NewStateTracker()
	for r, home := range t.home {
		c.home[r] = home
	}
	for r, s := range t.current {
		c.current[r] = s
	}
	return c
}
