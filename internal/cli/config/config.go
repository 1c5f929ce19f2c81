// Package config loads csv-preview settings from defaults, the config file,
// a named profile, the environment and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

const (
	EnvPrefix         = "CSVPREVIEW"
	DefaultConfigName = "csv-preview"
)

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"delimiter":    "delimiter",
	"lines":        "lines",
	"output":       "output",
	"table":        "table",
	"pattern":      "pattern",
	"format":       "format",
	"toc":          "toc",
	"toc-mode":     "tocMode",
	"css":          "css",
	"template":     "template",
	"columns":      "columns",
	"interactive":  "interactive",
	"parallel":     "parallel",
	"concurrency":  "concurrency",
	"metadata":     "metadata",
	"compress":     "compress",
	"error-log":    "errorLog",
	"title":        "title",
	"no-timestamp": "noTimestamp",
	"summary":      "summary",
	"verbose":      "verbose",
}

// negatedFlags turn a section block off; they map to the Show* keys.
var negatedFlags = map[string]string{
	"no-metadata": "showMetadata",
	"no-headers":  "showHeaders",
	"no-lines":    "showLines",
}

// LoadAndValidate merges every configuration source into preview.Options,
// validates the result and builds the logger. The returned close function
// releases the error-log file, if one was opened, and is never nil.
func LoadAndValidate(cfgFile, profileName, appVersion string, flags *pflag.FlagSet) (preview.Options, *slog.Logger, func() error, error) {
	var opts preview.Options
	noop := func() error { return nil }
	v := viper.New()

	// Used until the final handler is known.
	tempLogger := slog.New(newConsoleHandler(os.Stderr, slog.LevelInfo))

	setDefaults(v)

	// --- Load Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		} else {
			tempLogger.Debug("Cannot determine home directory; searching the working directory only", slog.Any("error", err))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			return opts, tempLogger, noop, fmt.Errorf("%w: error reading config file '%s': %w", preview.ErrConfigValidation, used, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	// --- Apply Profile ---
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			return opts, tempLogger, noop, fmt.Errorf("%w: profile '%s' not found in config file '%s'", preview.ErrConfigValidation, profileName, configPath)
		}
		profile := v.Sub(profileKey)
		if profile == nil {
			return opts, tempLogger, noop, fmt.Errorf("%w: profile '%s' is not a mapping", preview.ErrConfigValidation, profileName)
		}
		if err := v.MergeConfigMap(profile.AllSettings()); err != nil {
			return opts, tempLogger, noop, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return opts, tempLogger, noop, fmt.Errorf("error binding flag '--%s': %w", name, err)
			}
		}
	}

	configFilePath := opts.ConfigFilePath
	if err := v.Unmarshal(&opts); err != nil {
		return opts, tempLogger, noop, fmt.Errorf("%w: error unmarshalling configuration: %w", preview.ErrConfigValidation, err)
	}
	opts.ConfigFilePath = configFilePath
	opts.ProfileName = profileName
	opts.AppVersion = appVersion

	if flags != nil {
		for name, key := range negatedFlags {
			if !flags.Changed(name) {
				continue
			}
			off, _ := flags.GetBool(name)
			switch key {
			case "showMetadata":
				opts.ShowMetadata = !off
			case "showHeaders":
				opts.ShowHeaders = !off
			case "showLines":
				opts.ShowLines = !off
			}
		}
	}

	// --- Setup Final Logger ---
	handler, closeFn, err := newLogHandler(opts.ErrorLogPath, opts.Verbose)
	if err != nil {
		return opts, tempLogger, noop, err
	}
	opts.Logger = handler
	logger := slog.New(handler)
	if opts.ConfigFilePath != "" {
		logger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}
	if profileName != "" {
		logger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	if err := validateAndDeriveOptions(&opts); err != nil {
		_ = closeFn()
		return opts, logger, noop, err
	}
	return opts, logger, closeFn, nil
}

// setDefaults registers every key so environment variables can reach it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("pattern", preview.DefaultPattern)
	v.SetDefault("workDir", "")
	v.SetDefault("interactive", false)
	v.SetDefault("delimiter", preview.DefaultDelimiter)
	v.SetDefault("lines", preview.DefaultLines)
	v.SetDefault("columns", "")
	v.SetDefault("table", false)
	v.SetDefault("showMetadata", true)
	v.SetDefault("showHeaders", true)
	v.SetDefault("showLines", true)
	v.SetDefault("metadata", preview.DefaultMetadata)
	v.SetDefault("output", preview.DefaultOutputPath)
	v.SetDefault("format", "md")
	v.SetDefault("title", preview.DefaultTitle)
	v.SetDefault("toc", false)
	v.SetDefault("tocMode", string(preview.DefaultTOCMode))
	v.SetDefault("css", "")
	v.SetDefault("template", "")
	v.SetDefault("compress", false)
	v.SetDefault("noTimestamp", false)
	v.SetDefault("summary", string(preview.DefaultSummaryFormat))
	v.SetDefault("parallel", false)
	v.SetDefault("concurrency", preview.DefaultConcurrency)
	v.SetDefault("verbose", preview.DefaultVerbose)
	v.SetDefault("errorLog", "")
	v.SetDefault("tools.csvcut", "")
	v.SetDefault("tools.csvlook", "")
	v.SetDefault("tools.pandoc", "")
	v.SetDefault("tools.fzf", "")
	v.SetDefault("tools.gzip", "")
}

// newConsoleHandler returns the charmbracelet/log handler used on the terminal.
func newConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           charmlog.Level(level),
	})
	l.SetFormatter(charmlog.TextFormatter)
	return l
}

// newLogHandler logs to stderr, or to errorLogPath when set.
func newLogHandler(errorLogPath string, verbose bool) (slog.Handler, func() error, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if errorLogPath == "" {
		return newConsoleHandler(os.Stderr, level), func() error { return nil }, nil
	}
	if dir := filepath.Dir(errorLogPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("%w: cannot create error log directory '%s': %w", preview.ErrConfigValidation, dir, err)
		}
	}
	f, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: cannot open error log '%s': %w", preview.ErrConfigValidation, errorLogPath, err)
	}
	return slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}), f.Close, nil
}

// validateAndDeriveOptions checks the merged options. Advisory warnings are
// left for the run to report; only hard errors are returned here.
func validateAndDeriveOptions(opts *preview.Options) error {
	resolved := *opts
	if _, err := preview.ResolveOptions(&resolved); err != nil {
		return err
	}

	for _, p := range []struct {
		name string
		path *string
		used bool
	}{
		{"CSS file", &opts.CSSPath, resolved.CSSPath != ""},
		{"template", &opts.TemplatePath, resolved.TemplatePath != ""},
	} {
		if *p.path == "" || !p.used {
			continue
		}
		abs, err := filepath.Abs(*p.path)
		if err != nil {
			return fmt.Errorf("%w: cannot resolve %s path '%s': %w", preview.ErrConfigValidation, p.name, *p.path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("%w: %s '%s' does not exist or cannot be accessed: %w", preview.ErrConfigValidation, p.name, *p.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s '%s' is a directory", preview.ErrConfigValidation, p.name, *p.path)
		}
		*p.path = abs
	}
	return nil
}
