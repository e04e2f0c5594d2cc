package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jchantrell/bg3pak/internal/config"
	"github.com/jchantrell/bg3pak/internal/errs"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgFile string

	pkgPath    string
	dbPath     string
	files      []string
	workers    int
	maxDepth   int
	logLevel   string
	logFormat  string
	noProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "bg3pak",
	Short: "Baldur's Gate 3 package and resource inspection tool",
	Long: `bg3pak reads Larian .pak packages, decodes LSF resource trees such as
Globals.lsf from save archives, and renders them as JSON, YAML or CBOR.

Entries can also be extracted to disk or imported into a queryable SQLite
database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("package") {
			cfg.Package = pkgPath
		}
		if flags.Changed("database") {
			cfg.Database = dbPath
		}
		if flags.Changed("files") {
			cfg.Files = files
		}
		if flags.Changed("workers") {
			cfg.Workers = workers
		}
		if flags.Changed("max-depth") {
			cfg.MaxDepth = maxDepth
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		applyCommandFlags(cmd)

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid options: %w", err)
		}

		var level slog.Level
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		var handler slog.Handler
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})
		} else {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level: level,
			})
		}
		slog.SetDefault(slog.New(handler))

		slog.Debug("Configuration",
			"package", cfg.Package,
			"entry", cfg.Entry,
			"database", cfg.Database,
			"mode", cfg.Mode,
			"format", cfg.Format,
			"files", cfg.Files,
			"workers", cfg.Workers,
			"max_depth", cfg.MaxDepth,
			"log_level", cfg.LogLevel,
			"log_format", cfg.LogFormat)

		return nil
	},
}

// applyCommandFlags copies subcommand flags that override config keys
func applyCommandFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Lookup("mode") != nil && flags.Changed("mode") {
		cfg.Mode, _ = flags.GetString("mode")
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		cfg.Output, _ = flags.GetString("output")
	}
}

// packageArg resolves the package path from the first positional argument
// or the package config key
func packageArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg.Package != "" {
		return cfg.Package, nil
	}
	return "", fmt.Errorf("no package given: pass a .pak path or set 'package' in bg3pak.yaml")
}

// showProgress reports whether progress bars should be drawn
func showProgress() bool {
	return !(noProgress || cfg.LogFormat == "json" || cfg.LogLevel == "debug")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", errs.KindName(err), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is bg3pak.yaml in $HOME or pwd)")
	rootCmd.PersistentFlags().StringVarP(&pkgPath, "package", "p", "", "package (.pak) path")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "database", "d", "", "database file path")
	rootCmd.PersistentFlags().StringSliceVar(&files, "files", []string{}, "comma-separated glob patterns selecting entries")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "number of parallel workers (default: number of CPUs)")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum tree depth when serializing")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bar")
}

// packageAndEntry resolves "[pak] [entry]" positional arguments. A single
// argument is taken as the entry when a package is configured and the
// argument is not itself a .pak file. fallback is used when no entry is given.
func packageAndEntry(args []string, fallback string) (string, string, error) {
	switch {
	case len(args) >= 2:
		return args[0], args[1], nil
	case len(args) == 1 && cfg.Package != "" && !strings.EqualFold(filepath.Ext(args[0]), ".pak"):
		return cfg.Package, args[0], nil
	}
	pkg, err := packageArg(args)
	return pkg, fallback, err
}
