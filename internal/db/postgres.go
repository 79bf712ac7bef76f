package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/refurbtrack/refurb-tracker/internal/models"
)

// PostgresStore is the database backend. It serves two contracts at once:
// the snapshot store (snapshot_records is the diff baseline between runs)
// and the sink (current_inventory view plus the two append-only history
// tables, mirroring the price/availability logs).
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres not responding: %w", err)
	}

	return &PostgresStore{pool: p}, nil
}

// EnsureSchema creates the tables on a fresh database. History tables only
// ever receive inserts; rows are never edited or deleted by this service.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS snapshot_records (
			sku TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			price_pence BIGINT NOT NULL,
			original_price_pence BIGINT NOT NULL DEFAULT 0,
			available BOOLEAN NOT NULL DEFAULT TRUE,
			chip TEXT NOT NULL DEFAULT '',
			memory TEXT NOT NULL DEFAULT '',
			storage TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS current_inventory (
			sku TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			price_pence BIGINT NOT NULL,
			original_price_pence BIGINT NOT NULL DEFAULT 0,
			savings_pence BIGINT NOT NULL DEFAULT 0,
			chip TEXT NOT NULL DEFAULT '',
			memory TEXT NOT NULL DEFAULT '',
			storage TEXT NOT NULL DEFAULT '',
			scraped_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id BIGSERIAL PRIMARY KEY,
			recorded_at TIMESTAMPTZ NOT NULL,
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			change_type TEXT NOT NULL,
			old_price_pence BIGINT NOT NULL,
			new_price_pence BIGINT NOT NULL,
			change_pence BIGINT NOT NULL,
			url TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS availability_history (
			id BIGSERIAL PRIMARY KEY,
			recorded_at TIMESTAMPTZ NOT NULL,
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			change_type TEXT NOT NULL,
			current_price_pence BIGINT NOT NULL,
			url TEXT NOT NULL
		)`,
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LoadPrevious reads the diff baseline. An empty table is a first run.
func (s *PostgresStore) LoadPrevious(ctx context.Context) (models.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sku, name, url, price_pence, original_price_pence, available,
		       chip, memory, storage, color, scraped_at
		FROM snapshot_records
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query snapshot_records: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []models.ProductRecord
	for rows.Next() {
		var rec models.ProductRecord
		err := rows.Scan(
			&rec.SKU, &rec.Name, &rec.URL, &rec.PricePence, &rec.OriginalPricePence,
			&rec.Available, &rec.Chip, &rec.Memory, &rec.Storage, &rec.Color, &rec.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan snapshot record: %v", models.ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read snapshot_records: %v", models.ErrStoreUnavailable, err)
	}

	snap, err := models.NewSnapshot(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return snap, nil
}

// SaveCurrent replaces the diff baseline in one transaction.
func (s *PostgresStore) SaveCurrent(ctx context.Context, snap models.Snapshot) error {
	return s.replaceTable(ctx, "snapshot_records", snap, func(tx pgx.Tx, rec models.ProductRecord) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO snapshot_records
				(sku, name, url, price_pence, original_price_pence, available,
				 chip, memory, storage, color, scraped_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, rec.SKU, rec.Name, rec.URL, rec.PricePence, rec.OriginalPricePence,
			rec.Available, rec.Chip, rec.Memory, rec.Storage, rec.Color, rec.ScrapedAt)
		return err
	})
}

// SaveInventory rewrites the human-facing current inventory view.
func (s *PostgresStore) SaveInventory(ctx context.Context, snap models.Snapshot) error {
	err := s.replaceTable(ctx, "current_inventory", snap, func(tx pgx.Tx, rec models.ProductRecord) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO current_inventory
				(sku, name, url, price_pence, original_price_pence, savings_pence,
				 chip, memory, storage, scraped_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, rec.SKU, rec.Name, rec.URL, rec.PricePence, rec.OriginalPricePence,
			rec.SavingsPence(), rec.Chip, rec.Memory, rec.Storage, rec.ScrapedAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistFailed, err)
	}
	return nil
}

// AppendPriceHistory inserts price-change rows in detection order.
func (s *PostgresStore) AppendPriceHistory(ctx context.Context, rows []models.HistoryRow) error {
	return s.appendHistory(ctx, "price_history", rows, func(b *pgx.Batch, row models.HistoryRow) {
		b.Queue(`
			INSERT INTO price_history
				(recorded_at, sku, name, change_type, old_price_pence, new_price_pence, change_pence, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, row.Timestamp, row.SKU, row.Name, row.ChangeType, row.OldPrice, row.NewPrice, row.ChangeAmount, row.URL)
	})
}

// AppendAvailabilityHistory inserts appeared/disappeared rows in detection order.
func (s *PostgresStore) AppendAvailabilityHistory(ctx context.Context, rows []models.HistoryRow) error {
	return s.appendHistory(ctx, "availability_history", rows, func(b *pgx.Batch, row models.HistoryRow) {
		b.Queue(`
			INSERT INTO availability_history
				(recorded_at, sku, name, change_type, current_price_pence, url)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, row.Timestamp, row.SKU, row.Name, row.ChangeType, row.CurrentPrice, row.URL)
	})
}

func (s *PostgresStore) appendHistory(ctx context.Context, table string, rows []models.HistoryRow, queue func(*pgx.Batch, models.HistoryRow)) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		queue(batch, row)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: append to %s: %v", models.ErrPersistFailed, table, err)
	}
	return nil
}

func (s *PostgresStore) replaceTable(ctx context.Context, table string, snap models.Snapshot, insert func(pgx.Tx, models.ProductRecord) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s replace: %w", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	for _, rec := range snap.Records() {
		if err := insert(tx, rec); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s replace: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
