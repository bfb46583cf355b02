package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"algotrader/types"
)

var (
	ErrInstrumentNotFound = errors.New("instrument not found in datasource")
	ErrNoBars             = errors.New("no bars found in datasource")
)

// Database holds the connection pool for the bar store.
type Database struct {
	conn *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}
	return &Database{conn: conn}, nil
}

func (db *Database) Close() {
	db.conn.Close()
}

// GetInstrumentID resolves a ticker to its row id.
func (db *Database) GetInstrumentID(ctx context.Context, ticker string) (int, error) {
	var id int
	err := db.conn.QueryRow(ctx,
		`SELECT id FROM assets WHERE ticker = $1`, ticker).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("ticker %s: %w", ticker, ErrInstrumentNotFound)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetBars loads the ordered bar history for one instrument and range.
func (db *Database) GetBars(ctx context.Context, ticker string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	id, err := db.GetInstrumentID(ctx, ticker)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(ctx,
		`SELECT timestamp, open, high, low, close, volume, adj_close
		   FROM candles
		  WHERE asset_id = $1 AND interval = $2 AND timestamp >= $3 AND timestamp < $4
		  ORDER BY timestamp`,
		id, string(interval), start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		bar := types.Bar{Instrument: ticker, Interval: interval}
		if err := rows.Scan(&bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.AdjClose); err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}
	return bars, nil
}
