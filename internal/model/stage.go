package model

import "fmt"

// Stage is one of the ten ordered SRS mastery stages a subject moves
// through, from not-yet-started (Initiate) to retired (Burned).
type Stage uint8

const (
	StageInitiate Stage = iota
	StageApprentice1
	StageApprentice2
	StageApprentice3
	StageApprentice4
	StageGuru1
	StageGuru2
	StageMaster
	StageEnlightened
	StageBurned
)

// NumStages is the total number of SRS stages.
const NumStages = 10

// StageFromInt converts a raw stage code from the cache into a Stage,
// rejecting out-of-range values.
func StageFromInt(v int64) (Stage, error) {
	if v < 0 || v >= NumStages {
		return 0, fmt.Errorf("invalid srs stage %d", v)
	}
	return Stage(v), nil
}

// IsPassing reports whether the stage is at or beyond Guru 1. Passing is
// what unlocks dependent subjects and counts toward level completion.
func (s Stage) IsPassing() bool {
	return s >= StageGuru1
}

func (s Stage) String() string {
	switch s {
	case StageInitiate:
		return "initiate"
	case StageApprentice1:
		return "apprentice1"
	case StageApprentice2:
		return "apprentice2"
	case StageApprentice3:
		return "apprentice3"
	case StageApprentice4:
		return "apprentice4"
	case StageGuru1:
		return "guru1"
	case StageGuru2:
		return "guru2"
	case StageMaster:
		return "master"
	case StageEnlightened:
		return "enlightened"
	case StageBurned:
		return "burned"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}
