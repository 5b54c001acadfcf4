package sim

import (
	"fmt"
	"time"
)

// Kind distinguishes the entity shapes.
type Kind int

const (
	KindSpecimen Kind = iota
	KindBlock
	KindSlide
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindSpecimen:
		return "specimen"
	case KindBlock:
		return "block"
	case KindSlide:
		return "slide"
	case KindBatch:
		return "batch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Priority orders resource requests. Lower values are more urgent.
type Priority int

const (
	PriorityUrgent Priority = iota
	PriorityHigh
	PriorityCancer
	PriorityRoutine
)

func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "priority"
	case PriorityCancer:
		return "cancer"
	case PriorityRoutine:
		return "routine"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Origin records whether a specimen came from inside the hospital.
type Origin int

const (
	OriginInternal Origin = iota
	OriginExternal
)

func (o Origin) String() string {
	if o == OriginInternal {
		return "internal"
	}
	return "external"
}

// SpecimenClass selects the arrival schedule and priority mix.
type SpecimenClass int

const (
	ClassCancer SpecimenClass = iota
	ClassNonCancer
)

func (c SpecimenClass) String() string {
	if c == ClassCancer {
		return "cancer"
	}
	return "non_cancer"
}

// CutupType is the cut-up route taken by a specimen.
type CutupType int

const (
	CutupNone CutupType = iota
	CutupBMS
	CutupPool
	CutupLarge
)

func (c CutupType) String() string {
	switch c {
	case CutupBMS:
		return "bms"
	case CutupPool:
		return "pool"
	case CutupLarge:
		return "large_specimens"
	default:
		return "none"
	}
}

// BlockType determines the processing programme of a block.
type BlockType int

const (
	BlockSmallSurgical BlockType = iota
	BlockLargeSurgical
	BlockMega
)

func (b BlockType) String() string {
	switch b {
	case BlockSmallSurgical:
		return "small_surgical"
	case BlockLargeSurgical:
		return "large_surgical"
	default:
		return "mega"
	}
}

// SlideType is the microtomy task that produced a slide. Mega slides are
// stained and scanned apart from the regular-sized ones.
type SlideType int

const (
	SlideLevels SlideType = iota
	SlideSerials
	SlideLarges
	SlideMegas
)

func (s SlideType) String() string {
	switch s {
	case SlideLevels:
		return "levels"
	case SlideSerials:
		return "serials"
	case SlideLarges:
		return "larges"
	default:
		return "megas"
	}
}

// DecalcType is the decalcification route of a specimen's blocks.
type DecalcType int

const (
	DecalcNone DecalcType = iota
	DecalcBoneStation
	DecalcOven
)

func (d DecalcType) String() string {
	switch d {
	case DecalcBoneStation:
		return "bone_station"
	case DecalcOven:
		return "oven"
	default:
		return "none"
	}
}

// Stage is a WIP accounting region of the pathway.
type Stage int

const (
	StageTotal Stage = iota
	StageReception
	StageCutUp
	StageProcessing
	StageMicrotomy
	StageStaining
	StageLabelling
	StageScanning
	StageQC
	StageReporting
	numStages
)

// Stages lists the WIP stages in report order.
var Stages = []Stage{
	StageTotal, StageReception, StageCutUp, StageProcessing, StageMicrotomy,
	StageStaining, StageLabelling, StageScanning, StageQC, StageReporting,
}

var stageNames = [...]string{
	StageTotal:      "total",
	StageReception:  "reception",
	StageCutUp:      "cut_up",
	StageProcessing: "processing",
	StageMicrotomy:  "microtomy",
	StageStaining:   "staining",
	StageLabelling:  "labelling",
	StageScanning:   "scanning",
	StageQC:         "qc",
	StageReporting:  "reporting",
}

func (s Stage) String() string {
	if s >= 0 && s < numStages {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// State is the pathway state of an entity.
type State int

const (
	StateArrived State = iota
	StateReceiving
	StateBookingIn
	StateCutUp
	StateDecalc
	StateMachineLoad
	StateMachineRun
	StateMachineUnload
	StateEmbedTrim
	StateCollate
	StateMicrotomy
	StateStaining
	StateCoverslip
	StateLabelling
	StateScanning
	StateQC
	StateReporting
	StateInTransit
	StateDelivered
	StateTerminal
)

var stateNames = [...]string{
	StateArrived:       "arrived",
	StateReceiving:     "receiving",
	StateBookingIn:     "booking_in",
	StateCutUp:         "cut_up",
	StateDecalc:        "decalc",
	StateMachineLoad:   "machine_load",
	StateMachineRun:    "machine_run",
	StateMachineUnload: "machine_unload",
	StateEmbedTrim:     "embed_trim",
	StateCollate:       "collate",
	StateMicrotomy:     "microtomy",
	StateStaining:      "staining",
	StateCoverslip:     "coverslip",
	StateLabelling:     "labelling",
	StateScanning:      "scanning",
	StateQC:            "qc",
	StateReporting:     "reporting",
	StateInTransit:     "in_transit",
	StateDelivered:     "delivered",
	StateTerminal:      "terminal",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Entity is a specimen, one of its blocks or slides, or a batch of them. A batch
// owns its Members; members find their batch through the Coordinator's
// registry, never through a pointer of their own.
type Entity struct {
	ID        string
	Kind      Kind
	Priority  Priority
	Class     SpecimenClass
	Origin    Origin
	Stage     Stage
	State     State
	CreatedAt time.Duration

	// Specimen fields.
	Cutup  CutupType
	Decalc DecalcType
	Blocks []*Entity

	// Block and slide fields. A slide's Parent is its block.
	Parent    *Entity
	BlockType BlockType
	Slides    []*Entity
	SlideType SlideType

	// Batch fields.
	Members []*Entity

	// StageTimes holds entry and exit instants per stage for specimens.
	StageTimes [numStages]StageSpan
}

// StageSpan is the interval a specimen spent in one stage.
type StageSpan struct {
	Start, End      time.Duration
	Entered, Exited bool
}

// Specimen returns the specimen a block or slide was cut from.
func (e *Entity) Specimen() *Entity {
	for e.Parent != nil {
		e = e.Parent
	}
	return e
}

// SlideCount returns the number of slides cut from a specimen's blocks.
func (e *Entity) SlideCount() int {
	n := 0
	for _, b := range e.Blocks {
		n += len(b.Slides)
	}
	return n
}

// Urgent reports whether the entity rides the most urgent tier.
func (e *Entity) Urgent() bool { return e.Priority == PriorityUrgent }

func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.Kind, e.ID, e.Priority)
}
