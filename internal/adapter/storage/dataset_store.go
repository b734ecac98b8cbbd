// internal/adapter/storage/dataset_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mediaintel/internal/domain/mention"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		format TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		columns TEXT[] NOT NULL,
		date_from DATE,
		date_to DATE,
		uploaded_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mentions (
		dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		date DATE NOT NULL,
		headline TEXT NOT NULL,
		platform TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		location TEXT NOT NULL,
		media_type TEXT NOT NULL,
		source TEXT NOT NULL,
		engagements DOUBLE PRECISION NOT NULL,
		reach DOUBLE PRECISION NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		PRIMARY KEY (dataset_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_datasets_uploaded_at ON datasets(uploaded_at);
`

var mentionColumns = []string{
	"dataset_id", "position", "date", "headline", "platform", "sentiment",
	"location", "media_type", "source", "engagements", "reach", "latitude", "longitude",
}

// DatasetStore implements dataset storage on Postgres
type DatasetStore struct {
	db *pgxpool.Pool
}

// NewDatasetStore creates a new dataset store and ensures its schema exists
func NewDatasetStore(ctx context.Context, db *pgxpool.Pool) (*DatasetStore, error) {
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("error creating schema: %w", err)
	}
	return &DatasetStore{
		db: db,
	}, nil
}

// SaveDataset saves a dataset and copies its mentions in one transaction
func (s *DatasetStore) SaveDataset(ctx context.Context, ds mention.Dataset) error {
	if ds.UploadedAt.IsZero() {
		ds.UploadedAt = time.Now()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(
		ctx,
		`INSERT INTO datasets (id, name, format, row_count, columns, date_from, date_to, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ds.ID,
		ds.Name,
		ds.Format,
		ds.RowCount,
		ds.Columns,
		nullableTime(ds.From),
		nullableTime(ds.To),
		ds.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting dataset: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"mentions"},
		mentionColumns,
		pgx.CopyFromSlice(len(ds.Mentions), func(i int) ([]interface{}, error) {
			m := ds.Mentions[i]
			return []interface{}{
				ds.ID, i, m.Date, m.Headline, m.Platform, m.Sentiment,
				m.Location, m.MediaType, m.Source, m.Engagements, m.Reach,
				m.Latitude, m.Longitude,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("error copying mentions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing dataset: %w", err)
	}

	return nil
}

// GetDataset retrieves a dataset by ID
func (s *DatasetStore) GetDataset(ctx context.Context, id string) (*mention.Dataset, error) {
	query := `
		SELECT id, name, format, row_count, columns, date_from, date_to, uploaded_at
		FROM datasets
		WHERE id = $1
	`

	var ds mention.Dataset
	info, err := scanInfo(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, mention.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying dataset: %w", err)
	}
	ds.DatasetInfo = *info

	rows, err := s.db.Query(
		ctx,
		`SELECT date, headline, platform, sentiment, location, media_type, source,
			engagements, reach, latitude, longitude
		FROM mentions
		WHERE dataset_id = $1
		ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	ds.Mentions = make([]mention.Mention, 0, ds.RowCount)
	for rows.Next() {
		var m mention.Mention
		err := rows.Scan(
			&m.Date,
			&m.Headline,
			&m.Platform,
			&m.Sentiment,
			&m.Location,
			&m.MediaType,
			&m.Source,
			&m.Engagements,
			&m.Reach,
			&m.Latitude,
			&m.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning mention: %w", err)
		}
		m.Date = m.Date.UTC()
		ds.Mentions = append(ds.Mentions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mentions: %w", err)
	}

	return &ds, nil
}

// ListDatasets returns all datasets, newest first
func (s *DatasetStore) ListDatasets(ctx context.Context) ([]mention.DatasetInfo, error) {
	rows, err := s.db.Query(
		ctx,
		`SELECT id, name, format, row_count, columns, date_from, date_to, uploaded_at
		FROM datasets
		ORDER BY uploaded_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	infos := []mention.DatasetInfo{}
	for rows.Next() {
		info, err := scanInfo(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning dataset: %w", err)
		}
		infos = append(infos, *info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasets: %w", err)
	}

	return infos, nil
}

// DeleteDataset removes a dataset; mentions cascade
func (s *DatasetStore) DeleteDataset(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mention.ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes datasets uploaded before cutoff
func (s *DatasetStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `DELETE FROM datasets WHERE uploaded_at < $1 RETURNING id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error purging datasets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning purged id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purged ids: %w", err)
	}

	return ids, nil
}

// Close closes the connection pool
func (s *DatasetStore) Close() error {
	s.db.Close()
	return nil
}

func scanInfo(row pgx.Row) (*mention.DatasetInfo, error) {
	var info mention.DatasetInfo
	var from, to *time.Time

	err := row.Scan(
		&info.ID,
		&info.Name,
		&info.Format,
		&info.RowCount,
		&info.Columns,
		&from,
		&to,
		&info.UploadedAt,
	)
	if err != nil {
		return nil, err
	}

	if from != nil {
		info.From = from.UTC()
	}
	if to != nil {
		info.To = to.UTC()
	}

	return &info, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
