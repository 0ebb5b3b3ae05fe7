// Package store owns the durable representation of completed trials: a
// device-local SQLite key-value cache, best-effort mirroring to the remote
// sheet, and the per-device participant identity.
//
// The write path is local-first. A completed trial is always appended to the
// local vault before any network is attempted, so a failed or unconfigured
// remote never loses a record.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"chromatic/internal/trial"
)

// Well-known keys in the local store.
const (
	keyParticipantID = "participant_id"
	keyLocalHistory  = "chroma_results"
	keyGlobalVault   = "chroma_global_vault"
)

// fallbackParticipantID is returned when persistence is unavailable. It is
// never persisted; a later call with working storage generates a real id.
const fallbackParticipantID = "anonymous"

const participantSuffixChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// DataStore mediates between the local cache and the remote sheet.
type DataStore struct {
	local *LocalStore
	cloud *SheetClient
	log   *zap.Logger
}

// NewDataStore wires the local store to the sheet client. A nil logger is
// replaced with a no-op logger.
func NewDataStore(local *LocalStore, cloud *SheetClient, log *zap.Logger) *DataStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DataStore{local: local, cloud: cloud, log: log}
}

// CloudConnected reports whether a remote endpoint is configured.
func (d *DataStore) CloudConnected() bool {
	return d.cloud.Configured()
}

// ParticipantID returns the stable pseudo-identity for this device,
// generating and persisting one on first use. The identity survives
// restarts and is never regenerated once set. When storage is unavailable
// it returns a constant fallback for that call only.
func (d *DataStore) ParticipantID() string {
	pid, ok, err := d.local.Get(keyParticipantID)
	if err != nil {
		d.log.Warn("participant id read failed", zap.Error(err))
		return fallbackParticipantID
	}
	if ok && pid != "" {
		return pid
	}

	pid = newParticipantID(time.Now())
	if err := d.local.Set(keyParticipantID, pid); err != nil {
		d.log.Warn("participant id persist failed", zap.Error(err))
		return fallbackParticipantID
	}
	d.log.Info("generated participant id", zap.String("participant", pid))
	return pid
}

// newParticipantID builds an id like subject_k3x9q_4817: a short random
// alphanumeric suffix plus the last four digits of the unix-ms clock.
func newParticipantID(now time.Time) string {
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = participantSuffixChars[rand.IntN(len(participantSuffixChars))]
	}
	millis := fmt.Sprintf("%d", now.UnixMilli())
	return fmt.Sprintf("subject_%s_%s", suffix, millis[len(millis)-4:])
}

// SyncToCloud records one completed trial. The record is appended to the
// local vault unconditionally, tagged with the current connectivity state;
// only then is a single remote write attempted. Returns true when the remote
// acknowledged, or when no remote is configured. Network errors are absorbed
// and reported as a false outcome; the local append has already happened.
func (d *DataStore) SyncToCloud(ctx context.Context, rec trial.Record) bool {
	tagged := rec
	tagged.IsSynced = d.CloudConnected()

	vault := d.GlobalResults()
	vault = append(vault, tagged)
	if err := d.saveJSON(keyGlobalVault, vault); err != nil {
		d.log.Warn("local vault append failed", zap.Error(err))
	}

	if !d.cloud.Configured() {
		return true
	}

	if err := d.cloud.Push(ctx, rec); err != nil {
		d.log.Warn("cloud push failed", zap.String("record", rec.ID), zap.Error(err))
		return false
	}
	d.log.Debug("cloud push acknowledged", zap.String("record", rec.ID))
	return true
}

// FetchFromCloud reads the full remote collection. Unconfigured remotes and
// all failures yield an empty slice; malformed rows are defaulted per field
// by the sheet client, never dropped.
func (d *DataStore) FetchFromCloud(ctx context.Context) []trial.Record {
	if !d.cloud.Configured() {
		return nil
	}
	records, err := d.cloud.Fetch(ctx)
	if err != nil {
		d.log.Warn("cloud fetch failed", zap.Error(err))
		return nil
	}
	d.log.Debug("cloud fetch complete", zap.Int("rows", len(records)))
	return records
}

// GlobalResults returns the last locally cached global snapshot. Missing or
// corrupted cache data reads as empty rather than failing.
func (d *DataStore) GlobalResults() []trial.Record {
	return d.loadJSON(keyGlobalVault)
}

// SaveGlobalSnapshot replaces the cached global snapshot wholesale. The
// remote is authoritative; last writer wins.
func (d *DataStore) SaveGlobalSnapshot(records []trial.Record) {
	if err := d.saveJSON(keyGlobalVault, records); err != nil {
		d.log.Warn("global snapshot save failed", zap.Error(err))
	}
}

// LocalHistory returns this device's own trial history, most recent first.
func (d *DataStore) LocalHistory() []trial.Record {
	return d.loadJSON(keyLocalHistory)
}

// SaveLocalHistory persists the per-device history.
func (d *DataStore) SaveLocalHistory(records []trial.Record) {
	if err := d.saveJSON(keyLocalHistory, records); err != nil {
		d.log.Warn("local history save failed", zap.Error(err))
	}
}

// NukeGlobalData clears the cached global snapshot and the per-device
// history. The remote store is untouched. Idempotent.
func (d *DataStore) NukeGlobalData() {
	if err := d.local.Delete(keyGlobalVault); err != nil {
		d.log.Warn("vault clear failed", zap.Error(err))
	}
	if err := d.local.Delete(keyLocalHistory); err != nil {
		d.log.Warn("history clear failed", zap.Error(err))
	}
}

func (d *DataStore) saveJSON(key string, records []trial.Record) error {
	if records == nil {
		records = []trial.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	return d.local.Set(key, string(data))
}

// loadJSON reads a cached record collection. Unparsable cache contents are
// logged and treated as absent so a corrupted cache cannot break startup.
func (d *DataStore) loadJSON(key string) []trial.Record {
	raw, ok, err := d.local.Get(key)
	if err != nil {
		d.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var records []trial.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		d.log.Warn("corrupted cache entry, treating as empty",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	return records
}
