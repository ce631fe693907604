// Package timing converts beat positions within a segment into elapsed time.
package timing

import (
	"fmt"
	"math"
)

// TimeComputer maps beats to seconds for one segment whose beat duration ramps
// linearly from 60/tempoAtStart to 60/tempoAtEnd across totalBeats.
type TimeComputer struct {
	total     float64
	startSPB  float64
	endSPB    float64
	slope     float64
	totalSecs float64
}

func New(totalBeats, tempoAtStart, tempoAtEnd float64) (*TimeComputer, error) {
	if tempoAtStart <= 0 || tempoAtEnd <= 0 || math.IsNaN(tempoAtStart) || math.IsNaN(tempoAtEnd) {
		return nil, fmt.Errorf("timing: tempo must be positive (start=%v end=%v)", tempoAtStart, tempoAtEnd)
	}
	if totalBeats < 0 || math.IsNaN(totalBeats) {
		return nil, fmt.Errorf("timing: total beats must not be negative (%v)", totalBeats)
	}
	tc := &TimeComputer{
		total:    totalBeats,
		startSPB: 60 / tempoAtStart,
		endSPB:   60 / tempoAtEnd,
	}
	if totalBeats > 0 {
		tc.slope = (tc.endSPB - tc.startSPB) / totalBeats
	}
	tc.totalSecs = totalBeats * (tc.startSPB + tc.endSPB) / 2
	return tc, nil
}

// SecondsAtPosition integrates beat duration from 0 to beats. Outside the
// segment the boundary tempo continues unchanged.
func (tc *TimeComputer) SecondsAtPosition(beats float64) float64 {
	switch {
	case beats <= 0:
		return beats * tc.startSPB
	case beats >= tc.total:
		return tc.totalSecs + (beats-tc.total)*tc.endSPB
	default:
		return beats*tc.startSPB + tc.slope*beats*beats/2
	}
}

func (tc *TimeComputer) MicrosAtPosition(beats float64) int64 {
	return int64(math.Round(tc.SecondsAtPosition(beats) * 1e6))
}

func (tc *TimeComputer) TotalBeats() float64 { return tc.total }

func (tc *TimeComputer) TotalSeconds() float64 { return tc.totalSecs }

func (tc *TimeComputer) TotalMicros() int64 { return int64(math.Round(tc.totalSecs * 1e6)) }
