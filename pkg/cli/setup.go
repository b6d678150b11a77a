package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cuderbk/adw-elt-pipeline/internal/config"
)

// loadConfig reads the configuration from the root flags and the environment
// and builds the logger. Config warnings are logged once the logger exists.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)
	for _, w := range cfg.Warnings {
		logger.Warn("config", "warning", w)
	}
	return cfg, logger, nil
}

// newLogger returns a JSON logger, or a text logger when LogFormat is "text".
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
