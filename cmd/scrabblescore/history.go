package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/scrabble-score/internal/domain"
	"github.com/scrabble-score/internal/postgres"
)

type HistoryCmd struct {
	Config string `short:"c" default:"config.yaml" help:"Path to YAML configuration file"`
	Limit  int    `short:"n" default:"20" help:"Number of games to list (0 for all)"`
}

func (c *HistoryCmd) Run() error {
	repo, logger, err := openRepository(c.Config)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := repo.ListGameRecords(ctx, c.Limit)
	if err != nil {
		return fmt.Errorf("listing games: %w", err)
	}
	logger.Debug("listed games", "count", len(records))

	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "No games played yet")
		return nil
	}
	for _, record := range records {
		writeRecord(os.Stdout, record)
	}
	return nil
}

type HeadToHeadCmd struct {
	Config  string `short:"c" default:"config.yaml" help:"Path to YAML configuration file"`
	Player1 string `arg:"" help:"First player"`
	Player2 string `arg:"" help:"Second player"`
}

func (c *HeadToHeadCmd) Run() error {
	if err := domain.ValidatePlayerNames(c.Player1, c.Player2); err != nil {
		return err
	}

	repo, _, err := openRepository(c.Config)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	record, err := repo.QueryHeadToHead(ctx, c.Player1, c.Player2)
	if err != nil {
		return fmt.Errorf("querying head-to-head: %w", err)
	}
	writeHeadToHead(os.Stdout, c.Player1, c.Player2, record)
	return nil
}

func openRepository(configPath string) (*postgres.Repository, *slog.Logger, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log)

	repo, err := postgres.NewRepository(context.Background(), &cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	return repo, logger, nil
}

func writeRecord(w io.Writer, r domain.GameRecord) {
	date := "unknown date"
	if r.CreatedAt != nil {
		date = r.CreatedAt.Local().Format("2006-01-02 15:04")
	}
	outcome := "Draw"
	if winner := r.WinnerName(); winner != "" {
		outcome = winner + " won"
	}
	fmt.Fprintf(w, "%s  %s %d - %d %s  %s (%d min, %d turns)\n",
		date, r.Player1, r.Player1Score, r.Player2Score, r.Player2,
		outcome, r.DurationMinutes, len(r.Turns))
}

func writeHeadToHead(w io.Writer, player1, player2 string, h domain.HeadToHeadRecord) {
	if h.Total() == 0 {
		fmt.Fprintf(w, "%s and %s have not played each other yet\n", player1, player2)
		return
	}
	fmt.Fprintf(w, "%s vs %s: %d wins, %d losses, %d draws (%d games)\n",
		player1, player2, h.Wins, h.Losses, h.Draws, h.Total())
}
