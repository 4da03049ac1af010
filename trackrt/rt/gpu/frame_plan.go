package gpu

import (
	"fmt"
	"strings"
)

type StepKind int

const (
	StepUpload StepKind = iota
	StepTopDown
	StepConeShadows
	StepHorizonCopy
	StepHorizonCompute
	StepLit
	StepDebugDepth
	StepCones
	StepText
	StepRestore
	StepCapture
)

var stepNames = [...]string{
	StepUpload:         "upload",
	StepTopDown:        "top-down",
	StepConeShadows:    "cone-shadows",
	StepHorizonCopy:    "horizon-copy",
	StepHorizonCompute: "horizon-compute",
	StepLit:            "lit",
	StepDebugDepth:     "debug-depth",
	StepCones:          "cones",
	StepText:           "text",
	StepRestore:        "restore",
	StepCapture:        "capture",
}

func (k StepKind) String() string {
	if int(k) < len(stepNames) {
		return stepNames[k]
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

type Transition struct {
	Resource Resource
	To       ResourceState
}

// Step is one recorded unit of work. Before transitions are applied, then the
// requirements are checked, the step runs, and After transitions are applied.
type Step struct {
	Kind     StepKind
	Before   []Transition
	Requires []Transition
	After    []Transition
}

type FrameOptions struct {
	Horizon     bool
	ShadowDebug bool
	DebugCones  bool
	Text        bool
	Capture     bool
}

type FramePlan struct {
	Options FrameOptions
	Steps   []Step
}

// BuildFramePlan lays out the passes of one frame and the resource transitions
// between them. Every tracked resource ends the plan in its home state.
func BuildFramePlan(opts FrameOptions) *FramePlan {
	p := &FramePlan{Options: opts}
	add := func(s Step) { p.Steps = append(p.Steps, s) }

	add(Step{Kind: StepUpload})
	add(Step{
		Kind:     StepTopDown,
		Requires: []Transition{{ResTopDownDepth, StateWritable}},
	})
	add(Step{
		Kind:     StepConeShadows,
		Requires: []Transition{{ResConeShadows, StateWritable}},
		After:    []Transition{{ResConeShadows, StateReadable}},
	})

	if opts.Horizon {
		add(Step{
			Kind:   StepHorizonCopy,
			Before: []Transition{{ResTopDownDepth, StateCopySource}, {ResHeightMap, StateCopyDest}},
			After:  []Transition{{ResTopDownDepth, StateWritable}, {ResHeightMap, StateReadable}},
		})
		add(Step{
			Kind:     StepHorizonCompute,
			Requires: []Transition{{ResHeightMap, StateReadable}, {ResHorizonMaps, StateWritable}},
			After:    []Transition{{ResHorizonMaps, StateReadable}},
		})
	}

	if opts.ShadowDebug {
		add(Step{
			Kind:     StepDebugDepth,
			Requires: []Transition{{ResConeShadows, StateReadable}},
		})
	} else {
		lit := Step{
			Kind:     StepLit,
			Requires: []Transition{{ResConeShadows, StateReadable}},
		}
		if opts.Horizon {
			lit.Requires = append(lit.Requires, Transition{ResHorizonMaps, StateReadable})
		}
		add(lit)
	}

	if opts.DebugCones {
		add(Step{Kind: StepCones})
	}
	if opts.Text {
		add(Step{Kind: StepText})
	}

	restore := Step{Kind: StepRestore, After: []Transition{{ResConeShadows, StateWritable}}}
	if opts.Horizon {
		restore.After = append(restore.After, Transition{ResHorizonMaps, StateWritable})
	}
	add(restore)

	if opts.Capture {
		add(Step{Kind: StepCapture})
	}
	return p
}

func (p *FramePlan) String() string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Kind.String()
	}
	return strings.Join(names, " > ")
}

func (p *FramePlan) Has(kind StepKind) bool {
	for _, s := range p.Steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// Validate dry-runs the plan against a copy of the tracker.
func (p *FramePlan) Validate(t *StateTracker) error {
	return p.Execute(t.Clone(), func(Step) error { return nil })
}

// Execute walks the plan, calling run for every step. The first transition,
// requirement or step error aborts the frame. A plan that leaves a resource
// away from home is reported as an error after the last step.
func (p *FramePlan) Execute(t *StateTracker, run func(Step) error) error {
	for _, s := range p.Steps {
		for _, tr := range s.Before {
			if err := t.Transition(tr.Resource, tr.To); err != nil {
				return fmt.Errorf("%s: %w", s.Kind, err)
			}
		}
		for _, req := range s.Requires {
			if err := t.Require(req.Resource, req.To); err != nil {
				return fmt.Errorf("%s: %w", s.Kind, err)
			}
		}
		if err := run(s); err != nil {
			return fmt.Errorf("%s: %w", s.Kind, err)
		}
		for _, tr := range s.After {
			if err := t.Transition(tr.Resource, tr.To); err != nil {
				return fmt.Errorf("%s: %w", s.Kind, err)
			}
		}
	}
	return t.CheckHome()
}
