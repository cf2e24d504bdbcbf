package annotation

import "github.com/himanishpuri/ECGSegmenter/pkg/models"

// NumClasses is the number of diagnostic classes produced by DefaultClassTable.
const NumClasses = 5

// Class ids, following the MIT-BIH beat annotation grouping.
const (
	ClassNormal           models.ClassID = 0 // N, R, L, e, j
	ClassSupraventricular models.ClassID = 1 // A, a, J, S
	ClassVentricular      models.ClassID = 2 // V, E
	ClassFusion           models.ClassID = 3 // F
	ClassUnknown          models.ClassID = 4 // /, f, Q
)

// ClassTable maps beat annotation codes to class ids. Codes that are not in
// the table have no class.
type ClassTable map[string]models.ClassID

// DefaultClassTable returns a fresh copy of the standard beat-code grouping.
func DefaultClassTable() ClassTable {
	return ClassTable{
		"N": ClassNormal, "R": ClassNormal, "L": ClassNormal, "e": ClassNormal, "j": ClassNormal,
		"A": ClassSupraventricular, "a": ClassSupraventricular, "J": ClassSupraventricular, "S": ClassSupraventricular,
		"V": ClassVentricular, "E": ClassVentricular,
		"F": ClassFusion,
		"/": ClassUnknown, "f": ClassUnknown, "Q": ClassUnknown,
	}
}

// Lookup returns the class for code and whether the code is mapped.
func (t ClassTable) Lookup(code string) (models.ClassID, bool) {
	id, ok := t[code]
	return id, ok
}

// NumClasses returns one more than the largest class id in the table.
func (t ClassTable) NumClasses() int {
	n := 0
	for _, id := range t {
		if int(id)+1 > n {
			n = int(id) + 1
		}
	}
	return n
}

// Classify pairs each filtered event with its class. Index is the event's
// position in filtered, so unmapped events leave gaps in the numbering.
// Unmapped events are dropped; the second return value counts them.
func Classify(filtered []models.AnnotationEvent, table ClassTable) ([]models.LabeledEvent, int) {
	out := make([]models.LabeledEvent, 0, len(filtered))
	unmapped := 0
	for i, ev := range filtered {
		id, ok := table.Lookup(ev.Code)
		if !ok {
			unmapped++
			continue
		}
		out = append(out, models.LabeledEvent{AnnotationEvent: ev, Index: i, Class: id})
	}
	return out, unmapped
}
