package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/tidy/internal/models"
)

type RunStoreConfig struct {
	ConnString  string
	TableName   string
	RecentLimit int
}

// RunStore persists one row per pipeline run for auditing. It is optional
// wiring; the pipeline itself never depends on it.
type RunStore struct {
	config RunStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config RunStoreConfig) (*RunStore, error) {
	if config.TableName == "" {
		config.TableName = "pipeline_runs"
	}
	if config.RecentLimit == 0 {
		config.RecentLimit = 20
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	rs := &RunStore{
		config: config,
		pool:   pool,
	}

	if err := rs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return rs, nil
}

func (rs *RunStore) initialize() error {
	ctx := context.Background()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			doc_id TEXT NOT NULL,
			table_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			status TEXT NOT NULL,
			rows_original INTEGER,
			rows_cleaned INTEGER,
			duration_ms BIGINT,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, rs.config.TableName)

	_, err := rs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_doc_idx
		ON %s (doc_id, table_id)`,
		rs.config.TableName, rs.config.TableName)

	_, err = rs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

func (rs *RunStore) Record(ctx context.Context, record models.RunRecord) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (doc_id, table_id, stage, status, rows_original, rows_cleaned, duration_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rs.config.TableName)

	_, err := rs.pool.Exec(ctx, stmt,
		record.DocID,
		record.TableID,
		record.Stage,
		record.Status,
		record.RowsOriginal,
		record.RowsCleaned,
		record.Duration.Milliseconds(),
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %v", err)
	}

	return nil
}

func (rs *RunStore) Recent(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit == 0 {
		limit = rs.config.RecentLimit
	}

	query := fmt.Sprintf(`
		SELECT doc_id, table_id, stage, status, rows_original, rows_cleaned, error, created_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT $1`,
		rs.config.TableName)

	rows, err := rs.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %v", err)
	}
	defer rows.Close()

	var records []models.RunRecord
	for rows.Next() {
		var record models.RunRecord
		err := rows.Scan(
			&record.DocID,
			&record.TableID,
			&record.Stage,
			&record.Status,
			&record.RowsOriginal,
			&record.RowsCleaned,
			&record.Error,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		records = append(records, record)
	}

	return records, nil
}

func (rs *RunStore) Close() {
	if rs.pool != nil {
		rs.pool.Close()
	}
}
