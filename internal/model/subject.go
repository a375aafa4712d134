package model

import (
	"fmt"
	"time"
)

// MaxLevel is the highest curriculum level.
const MaxLevel = 60

// SubjectID identifies a curriculum item.
type SubjectID uint16

// SubjectKind classifies a subject. Kanji is the gating kind: level
// completion is measured against the kanji of the current level.
type SubjectKind uint8

const (
	KindRadical SubjectKind = iota
	KindKanji
	KindVocabulary
)

// KindFromString converts a raw object type from the cache into a
// SubjectKind, rejecting unknown types.
func KindFromString(s string) (SubjectKind, error) {
	switch s {
	case "radical":
		return KindRadical, nil
	case "kanji":
		return KindKanji, nil
	case "vocabulary":
		return KindVocabulary, nil
	}
	return 0, fmt.Errorf("invalid subject kind %q", s)
}

func (k SubjectKind) String() string {
	switch k {
	case KindRadical:
		return "radical"
	case KindKanji:
		return "kanji"
	case KindVocabulary:
		return "vocabulary"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Subject is an immutable curriculum item. DependsOn lists prerequisite
// subjects that must be unlocked first; DependedOnBy is the reverse edge
// set, used to unlock dependents when this subject passes.
type Subject struct {
	ID           SubjectID
	Level        uint8
	Kind         SubjectKind
	Srs          Srs
	DependsOn    []SubjectID
	DependedOnBy []SubjectID
}

// Review is one historical review outcome: the stage the subject was at
// before the review and the stage it ended at. Consumed only in
// aggregate to build the outcome model.
type Review struct {
	Srs        Srs
	StartStage Stage
	EndStage   Stage
}

// Assignment is the current study state of one unlocked subject.
// NextReviewTime is nil when nothing is scheduled: either the lesson has
// not been done yet (stage Initiate) or the subject is burned.
type Assignment struct {
	SubjectID      SubjectID
	Stage          Stage
	NextReviewTime *time.Time
}
