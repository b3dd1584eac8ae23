package hclg

import (
	"time"

	"github.com/katalvlaran/hclg/fst"
	"github.com/katalvlaran/hclg/stochastic"
)

// Stage names one step of the pipeline, in execution order.
type Stage int

const (
	StageLG Stage = iota
	StageCLG
	StageHCLGRaw
	StageHCLGDetMin
	StageHCLGDisambigRemoved
	StageHCLGFinal
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageLG, StageCLG, StageHCLGRaw, StageHCLGDetMin, StageHCLGDisambigRemoved, StageHCLGFinal}

var stageNames = [...]string{
	StageLG:                  "LG",
	StageCLG:                 "CLG",
	StageHCLGRaw:             "HCLG-raw",
	StageHCLGDetMin:          "HCLG-det-min",
	StageHCLGDisambigRemoved: "HCLG-disambig-removed",
	StageHCLGFinal:           "HCLG-final",
}

// String returns the stage name, e.g. "HCLG-raw".
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}

	return stageNames[s]
}

// StageResult is the typed value handed from one stage to the next.
type StageResult struct {
	Stage    Stage
	Fst      *fst.VectorFst
	Bounds   stochastic.Bounds
	States   int
	Arcs     int
	Duration time.Duration

	// Exempt marks the stage whose bounds are logged but not enforced.
	Exempt bool

	// Regressed is set on an exempt stage whose bounds left the previous
	// envelope by more than the final-stage tolerance.
	Regressed bool
}
