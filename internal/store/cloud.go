package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chromatic/internal/trial"
)

// placeholderInsight fills the insight column when a record is pushed before
// its insight has resolved. The amendment never re-pushes, so this is what
// the sheet keeps for that trial.
const placeholderInsight = "Processing..."

// SheetClient talks to the spreadsheet-backed remote trial store. The remote
// is an externally editable sheet with no schema enforcement, so every field
// read back is normalized defensively.
type SheetClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewSheetClient builds a client for the given endpoint. An empty URL yields
// a client whose Configured() is false; callers skip the network entirely.
func NewSheetClient(baseURL string) *SheetClient {
	return &SheetClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether a remote endpoint was set at build/deploy time.
// Purely informational; it does not probe connectivity.
func (c *SheetClient) Configured() bool {
	return c.baseURL != ""
}

// sheetRow is the wire shape of one trial in the sheet API. Durations travel
// as strings because the sheet stores everything as text.
type sheetRow struct {
	ParticipantID       string `json:"participantId"`
	Timestamp           string `json:"timestamp"`
	ColorName           string `json:"colorName"`
	ColorHex            string `json:"colorHex"`
	StareDuration       any    `json:"stareDuration"`
	PersistenceDuration any    `json:"persistenceDuration"`
	AIInsight           string `json:"aiInsight"`
}

// Push sends one completed trial to the sheet. Any non-2xx status or
// transport error is returned as an error; the caller converts it to a
// failure outcome.
func (c *SheetClient) Push(ctx context.Context, rec trial.Record) error {
	insight := rec.AIInsight
	if insight == "" {
		insight = placeholderInsight
	}
	payload := map[string]any{
		"data": []sheetRow{{
			ParticipantID:       rec.ParticipantID,
			Timestamp:           time.UnixMilli(rec.Timestamp).Format("1/2/2006, 3:04:05 PM"),
			ColorName:           rec.ColorName,
			ColorHex:            rec.ColorHex,
			StareDuration:       rec.StareDuration,
			PersistenceDuration: rec.PersistenceDuration,
			AIInsight:           insight,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal sheet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheet push failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sheet push rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Fetch reads every row from the sheet and maps each one defensively into a
// trial record. A response that is not a JSON array yields an error; a row
// with missing or malformed fields yields a record with defaults, never a
// dropped row.
func (c *SheetClient) Fetch(ctx context.Context) ([]trial.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sheet fetch rejected with status %d", resp.StatusCode)
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("sheet response is not a row collection: %w", err)
	}

	now := time.Now()
	records := make([]trial.Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, normalizeRow(row, i, now))
	}
	return records, nil
}

// normalizeRow maps one untyped sheet row into a record, substituting a
// documented default for every missing or malformed field.
func normalizeRow(row map[string]any, index int, now time.Time) trial.Record {
	rec := trial.Record{
		ID:                  fmt.Sprintf("cloud-%d-%d", index, now.UnixMilli()),
		ParticipantID:       stringField(row, "participantId", "unknown"),
		Timestamp:           timestampField(row, "timestamp", now),
		ColorName:           stringField(row, "colorName", "Unknown"),
		ColorHex:            stringField(row, "colorHex", "#ffffff"),
		StareDuration:       int(numberField(row, "stareDuration")),
		PersistenceDuration: numberField(row, "persistenceDuration"),
		AIInsight:           stringField(row, "aiInsight", ""),
		IsSynced:            true,
	}
	return rec
}

func stringField(row map[string]any, key, fallback string) string {
	if v, ok := row[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// numberField tolerates both JSON numbers and the stringified numbers the
// sheet usually returns. Anything unparsable maps to 0.
func numberField(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0
}

// timestampField parses the human-readable timestamp the sheet stores,
// falling back to the fetch time when it cannot be read back. The sheet
// layout carries no zone, and Push wrote it in local time, so it is parsed
// in local time to keep a push-then-fetch round trip lossless.
func timestampField(row map[string]any, key string, now time.Time) int64 {
	v, ok := row[key].(string)
	if !ok || v == "" {
		return now.UnixMilli()
	}
	if t, err := time.ParseInLocation("1/2/2006, 3:04:05 PM", v, time.Local); err == nil {
		return t.UnixMilli()
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UnixMilli()
	}
	return now.UnixMilli()
}
