package leads

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists leads in PostgreSQL.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects, pings and makes sure the leads table exists.
func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

// Deliver inserts the lead. The full payload is kept as JSONB next to the indexed columns.
func (s *PostgresSink) Deliver(ctx context.Context, lead Enriched) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}
	rooms := make([]string, 0, len(lead.Lead.Project.SelectedRooms))
	for _, r := range lead.Lead.Project.SelectedRooms {
		rooms = append(rooms, string(r))
	}

	c := lead.Lead.Client
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, email, first_name, last_name, phone, city, postal_code, rooms, style,
			priority_score, market_segment, complexity, estimated_weeks, average_cost, region, tags, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		lead.ID, c.Email, c.FirstName, c.LastName, c.Phone, c.City, c.PostalCode, rooms, string(lead.Lead.Project.SelectedStyle),
		lead.PriorityScore, lead.MarketSegment, lead.Complexity, lead.EstimatedDurationWeeks, lead.AverageCost, lead.Region, lead.Tags,
		payload, lead.ReceivedAt); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// Recent returns the latest leads, newest first.
func (s *PostgresSink) Recent(ctx context.Context, limit int) ([]Enriched, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT payload FROM leads ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	out := []Enriched{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		var lead Enriched
		if err := json.Unmarshal(raw, &lead); err != nil {
			return nil, fmt.Errorf("decode lead payload: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return out, nil
}

// Close releases database resources.
func (s *PostgresSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		first_name TEXT,
		last_name TEXT,
		phone TEXT,
		city TEXT,
		postal_code TEXT,
		rooms TEXT[] NOT NULL,
		style TEXT NOT NULL,
		priority_score INTEGER NOT NULL,
		market_segment TEXT NOT NULL,
		complexity TEXT NOT NULL,
		estimated_weeks INTEGER,
		average_cost DOUBLE PRECISION,
		region TEXT,
		tags TEXT[],
		payload JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create leads table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS leads_created_at_idx ON leads (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS leads_priority_idx ON leads (priority_score DESC)`,
	}
	for _, stmt := range indexes {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create leads index: %w", err)
		}
	}
	return nil
}
