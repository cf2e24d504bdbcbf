package segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/ECGSegmenter/pkg/models"
)

// DefaultRange is the default half-width of a window in samples.
const DefaultRange = 130

// ErrOutOfBounds is returned when a window would extend past either end of
// the channel. Events that went through annotation.Filter never trigger it.
var ErrOutOfBounds = errors.New("window out of bounds")

// Width returns the number of samples in a window of half-width rng.
func Width(rng int) int { return 2 * rng }

// Extract copies channel[p-rng : p+rng] for the event at position p.
// The tokens are copied verbatim, no resampling or numeric conversion.
func Extract(channel []string, ev models.LabeledEvent, rng int) (models.Window, error) {
	start := ev.Position - rng
	end := ev.Position + rng
	if rng <= 0 || start < 0 || end > len(channel) {
		return models.Window{}, fmt.Errorf("position %d range %d length %d: %w",
			ev.Position, rng, len(channel), ErrOutOfBounds)
	}

	samples := make([]string, end-start)
	copy(samples, channel[start:end])

	return models.Window{
		Index:    ev.Index,
		Position: ev.Position,
		Class:    ev.Class,
		Samples:  samples,
	}, nil
}

// ExtractAll extracts one window per event from the given channel of rec,
// in event order. It stops at the first error or when ctx is cancelled.
func ExtractAll(ctx context.Context, rec *models.Recording, channel int, events []models.LabeledEvent, rng int) ([]models.Window, error) {
	samples := rec.Channel(channel)
	if samples == nil {
		return nil, fmt.Errorf("record %s has no channel %d (has %d)", rec.Name, channel+1, len(rec.Channels))
	}

	windows := make([]models.Window, 0, len(events))
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, err := Extract(samples, ev, rng)
		if err != nil {
			return nil, fmt.Errorf("record %s event %d: %w", rec.Name, ev.Index, err)
		}
		w.Record = rec.Name
		windows = append(windows, w)
	}
	return windows, nil
}
