package types

import "fmt"

// Segment is one timestamped subtitle line.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Validate checks a segment list the same way the backend does before
// accepting it: times non-negative and ordered, text non-blank.
func ValidateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("segments required")
	}
	for i, s := range segments {
		if s.Start < 0 {
			return fmt.Errorf("segment %d has invalid start time", i)
		}
		if s.End <= s.Start {
			return fmt.Errorf("segment %d has invalid end time", i)
		}
		if isBlank(s.Text) {
			return fmt.Errorf("segment %d has invalid text", i)
		}
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
