package trace

import (
	"encoding/json"
	"fmt"
	"io"
)

// TraceLevel controls the verbosity of pathway tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelStages captures every state transition.
	TraceLevelStages TraceLevel = "stages"
	// TraceLevelResources additionally captures every grant and release.
	TraceLevelResources TraceLevel = "resources"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelStages:    true,
	TraceLevelResources: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records during one run. Seq numbers are shared
// across both record kinds so the merged order can be rebuilt.
type SimulationTrace struct {
	Config    TraceConfig
	Stages    []StageRecord
	Resources []ResourceRecord
	seq       int64
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:    config,
		Stages:    make([]StageRecord, 0),
		Resources: make([]ResourceRecord, 0),
	}
}

// Enabled reports whether stage records are kept. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && (st.Config.Level == TraceLevelStages || st.Config.Level == TraceLevelResources)
}

// ResourcesEnabled reports whether resource records are kept. Safe on a nil trace.
func (st *SimulationTrace) ResourcesEnabled() bool {
	return st != nil && st.Config.Level == TraceLevelResources
}

// RecordStage appends a state transition record.
func (st *SimulationTrace) RecordStage(record StageRecord) {
	record.Seq = st.seq
	st.seq++
	st.Stages = append(st.Stages, record)
}

// RecordResource appends a resource record.
func (st *SimulationTrace) RecordResource(record ResourceRecord) {
	record.Seq = st.seq
	st.seq++
	st.Resources = append(st.Resources, record)
}

// WriteJSONLines writes every record as one JSON object per line, merged in
// Seq order. Stage lines carry "type":"stage", resource lines "type":"resource".
func (st *SimulationTrace) WriteJSONLines(w io.Writer) error {
	enc := json.NewEncoder(w)
	i, j := 0, 0
	for i < len(st.Stages) || j < len(st.Resources) {
		var line any
		if j >= len(st.Resources) || (i < len(st.Stages) && st.Stages[i].Seq < st.Resources[j].Seq) {
			line = struct {
				Type string `json:"type"`
				StageRecord
			}{"stage", st.Stages[i]}
			i++
		} else {
			line = struct {
				Type string `json:"type"`
				ResourceRecord
			}{"resource", st.Resources[j]}
			j++
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("writing trace: %w", err)
		}
	}
	return nil
}
