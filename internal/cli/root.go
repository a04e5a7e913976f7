// Package cli wires configuration, logging and the converters into the
// sheet2csv command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nconklindev/sheet2csv/internal/batch"
	"github.com/nconklindev/sheet2csv/internal/config"
	"github.com/nconklindev/sheet2csv/internal/converter"
	"github.com/nconklindev/sheet2csv/internal/logging"
	"github.com/nconklindev/sheet2csv/internal/normalize"
	"github.com/nconklindev/sheet2csv/internal/ui"
)

type app struct {
	cfg     *config.Config
	logFile *os.File
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the terminal UI.
func NewRootCommand(version, commit, date string) *cobra.Command {
	return newRootCommand(&app{}, version, commit, date)
}

func newRootCommand(a *app, version, commit, date string) *cobra.Command {
	root := &cobra.Command{
		Use:           "sheet2csv",
		Short:         "Convert spreadsheets to clean UTF-8 CSV files",
		Long:          "sheet2csv converts XLSX (and CSV) files to CSV, collapsing whitespace in text cells and rewriting dates as YYYY-MM-DD.",
		Version:       fmt.Sprintf("%s\ncommit: %s\nbuilt: %s", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, !cmd.HasParent())
		},
		RunE: a.runUI,
	}
	root.SetVersionTemplate("sheet2csv {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.String("config", config.DefaultPath, "path to the config file")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.String("log-file", "", "write logs to this file")
	pf.Bool("strict", false, "fail a file when a date cell cannot be interpreted")
	pf.Int("workers", 1, "number of files converted in parallel")
	pf.StringSlice("date-column", nil, "treat the named column as dates (repeatable)")

	root.AddCommand(newConvertCommand(a), newFormatsCommand(a))
	return root
}

func (a *app) setup(cmd *cobra.Command, interactive bool) error {
	envErr := godotenv.Load()

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	switch {
	case cfg.Log.File != "":
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		logging.Setup(cfg.Log.Level, cfg.Log.Format, f)
	case interactive:
		// The alt screen owns the terminal.
		logging.Discard()
	default:
		logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	}

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", envErr)
	}
	if cfg.Source == "" {
		slog.Info("no config file found, using defaults", "path", path)
	} else {
		slog.Debug("configuration loaded", "path", cfg.Source, "formats", len(cfg.OutputFormats), "workers", cfg.Workers, "strict", cfg.Strict)
	}

	return nil
}

// close releases the log file. Each RunE defers it, since cobra skips
// post-run hooks when RunE fails.
func (a *app) close() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

// batchOptions translates the loaded configuration into conversion settings.
func (a *app) batchOptions() batch.Options {
	opts := []normalize.Option{
		normalize.WithLayouts(a.cfg.DateLayouts...),
		normalize.WithMissHook(func(m normalize.Miss) {
			slog.Debug("date left unchanged", "column", m.Column, "row", m.Row+1, "value", m.Value.String())
		}),
	}
	if a.cfg.Strict {
		opts = append(opts, normalize.WithMode(normalize.Strict))
	}

	return batch.Options{
		Normalizer: normalize.New(opts...),
		Read:       converter.Options{DateColumns: a.cfg.DateColumns},
		Workers:    a.cfg.Workers,
	}
}

func (a *app) runUI(cmd *cobra.Command, _ []string) error {
	defer a.close()

	p := tea.NewProgram(ui.InitialModel(a.cfg, a.batchOptions()), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
