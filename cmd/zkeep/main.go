package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zkeep/internal/cli"
	"github.com/zarlcorp/zkeep/internal/config"
	"github.com/zarlcorp/zkeep/internal/tui"
	"github.com/zarlcorp/zkeep/internal/vault"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zkeep"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zkeep: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}
	setLogLevel(cfg.LogLevel)

	rt := &cli.Runtime{
		Version: version,
		Config:  cfg,
		RunTUI:  runTUI,
	}

	if err := cli.NewRootCommand(rt).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "zkeep: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}

func runTUI(_ context.Context, v *vault.Vault) error {
	p := tea.NewProgram(tui.New(version, v))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func setLogLevel(s string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		slog.Warn("unknown log level, using info", "level", s)
		return
	}
	slog.SetLogLoggerLevel(level)
}
