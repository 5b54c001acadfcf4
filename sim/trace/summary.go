package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTransitions int
	UniqueEntities   int
	StateCounts      map[string]int // state → number of entries
	ResourceGrants   map[string]int // resource → number of grants
	MeanWaitMins     float64
	MaxWaitMins      float64
	LastHours        float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		StateCounts:    make(map[string]int),
		ResourceGrants: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	entities := make(map[string]struct{})
	summary.TotalTransitions = len(st.Stages)
	for _, s := range st.Stages {
		summary.StateCounts[s.State]++
		entities[s.EntityID] = struct{}{}
		summary.LastHours = max(summary.LastHours, s.Hours)
	}
	summary.UniqueEntities = len(entities)

	grants, totalWait := 0, 0.0
	for _, r := range st.Resources {
		summary.LastHours = max(summary.LastHours, r.Hours)
		if r.Action != "grant" {
			continue
		}
		grants++
		summary.ResourceGrants[r.Resource]++
		totalWait += r.WaitMins
		if r.WaitMins > summary.MaxWaitMins {
			summary.MaxWaitMins = r.WaitMins
		}
	}
	if grants > 0 {
		summary.MeanWaitMins = totalWait / float64(grants)
	}

	return summary
}
