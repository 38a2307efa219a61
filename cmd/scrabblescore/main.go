package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	charmlog "github.com/charmbracelet/log"

	"github.com/scrabble-score/internal/config"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version    kong.VersionFlag `short:"v" help:"Show version"`
	Serve      ServeCmd         `cmd:"" help:"Run the scorekeeping server"`
	History    HistoryCmd       `cmd:"" help:"List recently finished games"`
	HeadToHead HeadToHeadCmd    `cmd:"head-to-head" help:"Show the record between two players"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("scrabblescore"),
		kong.Description("Two-player Scrabble scorekeeper with shared game history"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// loadConfig reads .env then the YAML file
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, err := charmlog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = charmlog.InfoLevel
	}
	formatter := charmlog.TextFormatter
	if cfg.Format == "json" {
		formatter = charmlog.JSONFormatter
	}
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
	})
	return slog.New(handler)
}
