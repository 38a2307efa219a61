package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrabble-score/internal/config"
	"github.com/scrabble-score/internal/domain"
)

// dbPool is the part of *pgxpool.Pool the repository uses
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Repository provides PostgreSQL-based storage of finished games
type Repository struct {
	pool   dbPool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(ctx context.Context, cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pgPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return newRepository(pgPool, logger), nil
}

func newRepository(p dbPool, logger *slog.Logger) *Repository {
	return &Repository{
		pool:   p,
		logger: logger,
	}
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			player1 VARCHAR(64) NOT NULL,
			player2 VARCHAR(64) NOT NULL,
			player1_score INT NOT NULL,
			player2_score INT NOT NULL,
			winner VARCHAR(64),
			turns JSONB NOT NULL DEFAULT '[]'::jsonb,
			duration_minutes INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_created_at ON games(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_games_players ON games(lower(player1), lower(player2))`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const gameColumns = `id::text, created_at, player1, player2, player1_score, player2_score, winner, turns, duration_minutes`

// CreateGameRecord inserts a finished game and returns it with the store-assigned id and created_at
func (r *Repository) CreateGameRecord(ctx context.Context, record domain.GameRecord) (domain.GameRecord, error) {
	turns, err := json.Marshal(record.Turns)
	if err != nil {
		return domain.GameRecord{}, fmt.Errorf("encoding turns: %w", err)
	}

	query := `
		INSERT INTO games (player1, player2, player1_score, player2_score, winner, turns, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + gameColumns

	row := r.pool.QueryRow(ctx, query,
		record.Player1,
		record.Player2,
		record.Player1Score,
		record.Player2Score,
		record.Winner,
		turns,
		record.DurationMinutes,
	)
	saved, err := scanGameRecord(row)
	if err != nil {
		return domain.GameRecord{}, fmt.Errorf("creating game record: %w", err)
	}
	return saved, nil
}

// ListGameRecords returns games most recent first. A limit of 0 returns all of them.
func (r *Repository) ListGameRecords(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY created_at DESC LIMIT NULLIF($1, 0)`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing game records: %w", err)
	}
	defer rows.Close()

	records := []domain.GameRecord{}
	for rows.Next() {
		record, err := scanGameRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// QueryHeadToHead returns a's record against b across all stored games
func (r *Repository) QueryHeadToHead(ctx context.Context, a, b string) (domain.HeadToHeadRecord, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	query := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE (player1 ILIKE $1 ESCAPE '\' AND player2 ILIKE $2 ESCAPE '\')
		   OR (player1 ILIKE $2 ESCAPE '\' AND player2 ILIKE $1 ESCAPE '\')`

	rows, err := r.pool.Query(ctx, query, escapeLike(a), escapeLike(b))
	if err != nil {
		return domain.HeadToHeadRecord{}, fmt.Errorf("querying head-to-head: %w", err)
	}
	defer rows.Close()

	var records []domain.GameRecord
	for rows.Next() {
		record, err := scanGameRecord(rows)
		if err != nil {
			return domain.HeadToHeadRecord{}, fmt.Errorf("scanning game record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return domain.HeadToHeadRecord{}, fmt.Errorf("querying head-to-head: %w", err)
	}

	return domain.ComputeHeadToHead(records, a, b), nil
}

// escapeLike makes s match only itself in an ILIKE pattern with ESCAPE '\'
func escapeLike(s string) string {
	return likeEscaper.Replace(strings.TrimSpace(s))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanGameRecord(row pgx.Row) (domain.GameRecord, error) {
	var (
		record domain.GameRecord
		turns  []byte
	)
	record.CreatedAt = new(time.Time)
	err := row.Scan(
		&record.ID,
		record.CreatedAt,
		&record.Player1,
		&record.Player2,
		&record.Player1Score,
		&record.Player2Score,
		&record.Winner,
		&turns,
		&record.DurationMinutes,
	)
	if err != nil {
		return domain.GameRecord{}, err
	}
	if err := json.Unmarshal(turns, &record.Turns); err != nil {
		return domain.GameRecord{}, fmt.Errorf("decoding turns: %w", err)
	}
	return record, nil
}
