package model

import "fmt"

// Srs identifies which spaced repetition system governs a subject's
// review intervals. Levels 1-2 use the accelerated system, everything
// else the normal one. The variant changes interval lengths only, never
// review outcomes.
type Srs uint8

const (
	SrsNormal      Srs = 1
	SrsAccelerated Srs = 2
)

// SrsFromInt converts a raw spaced_repetition_system_id from the cache
// into an Srs, rejecting unknown systems.
func SrsFromInt(v int64) (Srs, error) {
	switch v {
	case int64(SrsNormal):
		return SrsNormal, nil
	case int64(SrsAccelerated):
		return SrsAccelerated, nil
	}
	return 0, fmt.Errorf("invalid spaced repetition system %d", v)
}

// normalHours and acceleratedHours map the stage just entered to the
// hours until the next review. Guru 1 and above share the same intervals
// across systems; only the apprentice intervals differ.
var (
	normalHours      = [NumStages]uint32{0, 4, 8, 23, 47, 167, 335, 719, 2879, 0}
	acceleratedHours = [NumStages]uint32{0, 2, 4, 8, 23, 167, 335, 719, 2879, 0}
)

// HoursToNextReview returns the whole-hour interval before a subject
// that just entered stage becomes reviewable again. The second return is
// false for stages that are never scheduled (Initiate and Burned).
func (s Srs) HoursToNextReview(stage Stage) (uint32, bool) {
	if stage == StageInitiate || stage == StageBurned {
		return 0, false
	}
	if s == SrsAccelerated {
		return acceleratedHours[stage], true
	}
	return normalHours[stage], true
}
