// Package trial defines the durable outcome of one completed
// stare-and-persistence cycle and the history operations around it.
package trial

import (
	"math"
	"time"

	"github.com/google/uuid"

	"chromatic/internal/stimulus"
)

// Record is one completed trial. A record is created exactly once, at the
// instant the participant signals the afterimage has vanished, and amended
// exactly once afterwards to attach the generated insight and the sync
// outcome. JSON field names match the cloud sheet's column names.
type Record struct {
	ID                  string  `json:"id"`
	ParticipantID       string  `json:"participantId"`
	Timestamp           int64   `json:"timestamp"` // epoch milliseconds
	ColorName           string  `json:"colorName"`
	ColorHex            string  `json:"colorHex"`
	StareDuration       int     `json:"stareDuration"`       // seconds
	PersistenceDuration float64 `json:"persistenceDuration"` // seconds, 2dp
	AIInsight           string  `json:"aiInsight,omitempty"`
	IsSynced            bool    `json:"isSynced,omitempty"`
}

// RoundSeconds rounds an elapsed duration to two decimal places, the
// resolution the persistence stopwatch displays and records.
func RoundSeconds(seconds float64) float64 {
	return math.Round(seconds*100) / 100
}

// NewRecord builds a fresh record at trial completion. The stimulus fields
// are copied by value so later catalog edits cannot affect past records.
// The elapsed persistence time is captured at 2dp.
func NewRecord(participantID string, stim stimulus.Stimulus, stareSeconds int, elapsed time.Duration, now time.Time) Record {
	return Record{
		ID:                  uuid.NewString(),
		ParticipantID:       participantID,
		Timestamp:           now.UnixMilli(),
		ColorName:           stim.Name,
		ColorHex:            stim.Hex,
		StareDuration:       stareSeconds,
		PersistenceDuration: RoundSeconds(elapsed.Seconds()),
	}
}

// Amend attaches the insight text and sync outcome to the record with the
// given id, wherever it sits in history. Amendment targets the record by
// identity, not by position, so it stays correct after the participant has
// navigated away and the record is no longer the one on screen. Records are
// otherwise never mutated in place.
func Amend(history []Record, id, insight string, synced bool) []Record {
	for i := range history {
		if history[i].ID == id {
			history[i].AIInsight = insight
			history[i].IsSynced = synced
		}
	}
	return history
}

// Prepend inserts a record at the front of history (most recent first).
func Prepend(history []Record, rec Record) []Record {
	return append([]Record{rec}, history...)
}
