package annotation

import "github.com/himanishpuri/ECGSegmenter/pkg/models"

// Filter keeps the events whose position p satisfies rng < p <= length-rng,
// in input order. Positions are not required to be sorted.
func Filter(length, rng int, events []models.AnnotationEvent) []models.AnnotationEvent {
	out := make([]models.AnnotationEvent, 0, len(events))
	for _, ev := range events {
		if ev.Position > rng && ev.Position <= length-rng {
			out = append(out, ev)
		}
	}
	return out
}
