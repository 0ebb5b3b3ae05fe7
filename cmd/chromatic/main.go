// chromatic is an interactive terminal exhibit demonstrating negative
// afterimages: stare at a color stimulus, then time how long the
// complementary ghost image persists. Completed trials are cached locally
// and mirrored, best effort, to a spreadsheet-backed remote store.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chromatic/cmd/chromatic/config"
	"chromatic/cmd/chromatic/exhibit"
	"chromatic/internal/export"
	"chromatic/internal/insight"
	"chromatic/internal/logging"
	"chromatic/internal/store"
)

var (
	verbose    bool
	exportPath string
	confirmYes bool
)

// stack bundles the wired components shared by every command.
type stack struct {
	cfg    config.Config
	logger *zap.Logger
	data   *store.DataStore
	close  func()
}

// buildStack loads config and wires storage + cloud. Interactive mode logs
// to a file because the exhibit owns the terminal.
func buildStack(interactive bool) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		// A broken config file falls back to defaults; still worth surfacing.
		fmt.Fprintf(os.Stderr, "warning: config load: %v\n", err)
	}

	dataDir, err := config.DataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	var logger *zap.Logger
	if interactive {
		logger, err = logging.NewFileLogger(dataDir, verbose)
	} else {
		logger, err = logging.NewStderrLogger(verbose)
	}
	if err != nil {
		return nil, err
	}

	local, err := store.NewLocalStore(filepath.Join(dataDir, "chromatic.db"))
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	data := store.NewDataStore(local, store.NewSheetClient(cfg.SheetURL), logger)
	return &stack{
		cfg:    cfg,
		logger: logger,
		data:   data,
		close: func() {
			_ = local.Close()
			_ = logger.Sync()
		},
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "chromatic",
	Short: "Chromatic Adaptation - terminal vision-science exhibit",
	Long: `chromatic walks a participant through a negative-afterimage trial:
stare at a color stimulus for a configured period, then time how long the
complementary afterimage persists. Results are recorded locally, mirrored to
a spreadsheet-backed store when configured, and annotated with a generated
insight.

Run without arguments to start the interactive exhibit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExhibit()
	},
}

func runExhibit() error {
	s, err := buildStack(true)
	if err != nil {
		return err
	}
	defer s.close()

	requester, err := insight.NewRequester(context.Background(), s.cfg.GeminiAPIKey, "", s.logger)
	if err != nil {
		return err
	}

	s.logger.Info("exhibit starting",
		zap.Bool("cloud", s.data.CloudConnected()),
		zap.String("participant", s.data.ParticipantID()))

	m := exhibit.New(s.cfg, s.data, requester, s.logger)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("exhibit terminated: %w", err)
	}
	if fm, ok := final.(exhibit.Model); ok {
		s.logger.Info("exhibit closed", zap.String("phase", fm.Phase().String()))
	}
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the global trial snapshot as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack(false)
		if err != nil {
			return err
		}
		defer s.close()

		records := s.data.GlobalResults()
		out := os.Stdout
		if exportPath != "" {
			f, err := os.Create(exportPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportPath, err)
			}
			defer f.Close()
			out = f
		}
		if err := export.WriteCSV(out, records); err != nil {
			return err
		}
		if exportPath != "" {
			fmt.Fprintf(os.Stderr, "wrote %d trials to %s\n", len(records), exportPath)
		}
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Refresh the global snapshot from the remote store",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack(false)
		if err != nil {
			return err
		}
		defer s.close()

		if !s.data.CloudConnected() {
			return fmt.Errorf("no remote store configured (set sheet_url or CHROMATIC_SHEET_URL)")
		}
		records := s.data.FetchFromCloud(cmd.Context())
		if len(records) == 0 {
			fmt.Println("no rows fetched; local snapshot unchanged")
			return nil
		}
		s.data.SaveGlobalSnapshot(records)
		fmt.Printf("fetched %d trials\n", len(records))
		return nil
	},
}

var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Print this device's participant id",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := buildStack(false)
		if err != nil {
			return err
		}
		defer s.close()
		fmt.Println(s.data.ParticipantID())
		return nil
	},
}

var (
	setSheetURL string
	setAPIKey   string
	setTheme    string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update the exhibit configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: config load: %v\n", err)
		}

		changed := false
		if cmd.Flags().Changed("sheet-url") {
			cfg.SheetURL = setSheetURL
			changed = true
		}
		if cmd.Flags().Changed("api-key") {
			cfg.GeminiAPIKey = setAPIKey
			changed = true
		}
		if cmd.Flags().Changed("theme") {
			cfg.Theme = setTheme
			changed = true
		}
		if changed {
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
		}

		path, _ := config.ConfigFile()
		fmt.Printf("config file:  %s\n", path)
		fmt.Printf("sheet url:    %s\n", orUnset(cfg.SheetURL))
		fmt.Printf("gemini key:   %s\n", orUnset(maskKey(cfg.GeminiAPIKey)))
		fmt.Printf("theme:        %s\n", cfg.Theme)
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:4] + "..." + key[len(key)-4:]
}

var nukeCmd = &cobra.Command{
	Use:   "nuke",
	Short: "Clear the local trial history and cached global snapshot",
	Long: `Clears the device-local view only. Data already mirrored to the
remote sheet is untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmYes {
			return fmt.Errorf("refusing to clear without --yes")
		}
		s, err := buildStack(false)
		if err != nil {
			return err
		}
		defer s.close()
		s.data.NukeGlobalData()
		fmt.Println("local view cleared")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "write CSV to a file instead of stdout")
	nukeCmd.Flags().BoolVar(&confirmYes, "yes", false, "confirm the destructive clear")
	configCmd.Flags().StringVar(&setSheetURL, "sheet-url", "", "remote trial store endpoint")
	configCmd.Flags().StringVar(&setAPIKey, "api-key", "", "Gemini API key for insight generation")
	configCmd.Flags().StringVar(&setTheme, "theme", "", "color theme (dark or light)")

	rootCmd.AddCommand(exportCmd, fetchCmd, participantCmd, nukeCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
