package entity

import "time"

// SourceReport describes what happened to one source
type SourceReport struct {
	URI      string         `json:"uri"`
	Format   SourceFormat   `json:"format"`
	Action   SourceAction   `json:"action"`
	Bytes    int64          `json:"bytes"`
	Lines    int            `json:"lines"`
	Accepted int            `json:"accepted"`
	Allowed  int            `json:"allowed"`
	Reasons  map[string]int `json:"reasons"`
	Duration time.Duration  `json:"duration"`
}

// StageTiming is the wall time of one pipeline stage
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	// Size is the working set size after the stage
	Size int `json:"size"`
}

// Report summarizes a merge run
type Report struct {
	RunID         string         `json:"run_id"`
	Sources       []SourceReport `json:"sources"`
	CombineCount  int            `json:"combine_count"`
	ExternalCount int            `json:"external_count"`
	AllowCount    int            `json:"allow_count"`
	Stages        []StageTiming  `json:"stages"`
	// CoverageRounds holds the number of entries removed by each coverage round
	CoverageRounds []int         `json:"coverage_rounds"`
	ExtraRemoved   int           `json:"extra_removed"`
	FinalCount     int           `json:"final_count"`
	OutputFile     string        `json:"output_file"`
	Elapsed        time.Duration `json:"elapsed"`
}

// AddStage appends a stage timing
func (r *Report) AddStage(stage string, d time.Duration, size int) {
	r.Stages = append(r.Stages, StageTiming{Stage: stage, Duration: d, Size: size})
}

// CoverageRemoved is the total removed across coverage rounds
func (r *Report) CoverageRemoved() int {
	total := 0
	for _, n := range r.CoverageRounds {
		total += n
	}
	return total
}
