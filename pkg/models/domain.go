package models

// ClassID is the diagnostic class assigned to a beat (0..4).
type ClassID int

// Recording is one continuous signal capture loaded from a tabular signal file.
type Recording struct {
	Name     string     // Record name, e.g. "100"
	Channels [][]string // Channels[c][i] is the i-th sample of signal column c, kept as text
	Len      int        // Total sample count
}

// Channel returns the sample tokens of signal column c (0-based), or nil.
func (r *Recording) Channel(c int) []string {
	if c < 0 || c >= len(r.Channels) {
		return nil
	}
	return r.Channels[c]
}

// AnnotationEvent is a single labeled point in a recording's timeline.
type AnnotationEvent struct {
	Position int    // Sample offset
	Code     string // Beat-type code, e.g. "N", "V", "/"
}

// LabeledEvent is a boundary-filtered event that mapped to a class.
type LabeledEvent struct {
	AnnotationEvent
	Index int // Position in the filtered event list, used for naming
	Class ClassID
}

// Window is a fixed-width slice of one channel centered on a labeled event.
type Window struct {
	Record   string
	Index    int
	Position int
	Class    ClassID
	Samples  []string
}
