// Package export renders the global trial snapshot as delimited text for
// download by the vault view or the export subcommand.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"chromatic/internal/trial"
)

var header = []string{"Participant ID", "Timestamp", "Stimulus", "Stare(s)", "Persistence(s)", "Insight"}

// WriteCSV renders the snapshot into w, one row per trial. Commas inside the
// insight text are replaced with semicolons so the column stays readable in
// sheet tools that ignore quoting.
func WriteCSV(w io.Writer, records []trial.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ParticipantID,
			time.UnixMilli(r.Timestamp).Format("1/2/2006, 3:04:05 PM"),
			r.ColorName,
			strconv.Itoa(r.StareDuration),
			strconv.FormatFloat(r.PersistenceDuration, 'f', -1, 64),
			strings.ReplaceAll(r.AIInsight, ",", ";"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename returns the dated artifact name for an export taken at now.
func Filename(now time.Time) string {
	return fmt.Sprintf("Global_Experiment_Data_%s.csv", now.Format("2006-01-02"))
}
