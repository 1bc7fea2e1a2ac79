package pipeline

import "fmt"

// Stage identifies a state of one capture run. The machine moves strictly
// forward; Committed and Abandoned are terminal, and a restart is always a
// fresh run rather than a retried stage.
type Stage int

const (
	StageCaptured Stage = iota
	StageDetecting
	StageRectifying
	StageEnhancing
	StageRecognizing
	StageExtracting
	StageAwaitingConfirmation
	StageCommitted
	StageAbandoned
)

var stageNames = map[Stage]string{
	StageCaptured:             "captured",
	StageDetecting:            "detecting",
	StageRectifying:           "rectifying",
	StageEnhancing:            "enhancing",
	StageRecognizing:          "recognizing",
	StageExtracting:           "extracting",
	StageAwaitingConfirmation: "awaiting_confirmation",
	StageCommitted:            "committed",
	StageAbandoned:            "abandoned",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool { return s == StageCommitted || s == StageAbandoned }

// MarshalText implements encoding.TextMarshaler so stages serialize as
// their names in JSON results.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	name := string(text)
	for st, n := range stageNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", name)
}
