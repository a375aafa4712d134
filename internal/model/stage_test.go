package model

import "testing"

func TestStageFromInt_Bounds(t *testing.T) {
	for v := int64(0); v < NumStages; v++ {
		s, err := StageFromInt(v)
		if err != nil {
			t.Fatalf("StageFromInt(%d) error: %v", v, err)
		}
		if uint8(s) != uint8(v) {
			t.Errorf("StageFromInt(%d) = %v", v, s)
		}
	}
	for _, v := range []int64{-1, 10, 255} {
		if _, err := StageFromInt(v); err == nil {
			t.Errorf("StageFromInt(%d) expected error", v)
		}
	}
}

func TestStageIsPassing(t *testing.T) {
	for s := StageInitiate; s <= StageBurned; s++ {
		want := s >= StageGuru1
		if got := s.IsPassing(); got != want {
			t.Errorf("%v.IsPassing() = %v, want %v", s, got, want)
		}
	}
}
