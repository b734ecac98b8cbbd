// internal/adapter/storage/sqlite_store.go

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"mediaintel/internal/domain/mention"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		format TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		columns TEXT NOT NULL,
		date_from TEXT,
		date_to TEXT,
		uploaded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mentions (
		dataset_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		date TEXT NOT NULL,
		headline TEXT NOT NULL,
		platform TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		location TEXT NOT NULL,
		media_type TEXT NOT NULL,
		source TEXT NOT NULL,
		engagements REAL NOT NULL,
		reach REAL NOT NULL,
		latitude REAL,
		longitude REAL,
		PRIMARY KEY (dataset_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_datasets_uploaded_at ON datasets(uploaded_at);
`

// SQLiteStore implements dataset storage on an embedded SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and ensures its schema exists
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveDataset saves a dataset and its mentions in one transaction
func (s *SQLiteStore) SaveDataset(ctx context.Context, ds mention.Dataset) error {
	if ds.UploadedAt.IsZero() {
		ds.UploadedAt = time.Now()
	}

	columns, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("error marshaling columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO datasets (id, name, format, row_count, columns, date_from, date_to, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID,
		ds.Name,
		ds.Format,
		ds.RowCount,
		string(columns),
		formatDay(ds.From),
		formatDay(ds.To),
		ds.UploadedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("error inserting dataset: %w", err)
	}

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO mentions (dataset_id, position, date, headline, platform, sentiment,
			location, media_type, source, engagements, reach, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range ds.Mentions {
		_, err := stmt.ExecContext(
			ctx,
			ds.ID, i, m.Day(), m.Headline, m.Platform, m.Sentiment,
			m.Location, m.MediaType, m.Source, m.Engagements, m.Reach,
			m.Latitude, m.Longitude,
		)
		if err != nil {
			return fmt.Errorf("error inserting mention %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing dataset: %w", err)
	}

	return nil
}

// GetDataset retrieves a dataset by ID
func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*mention.Dataset, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, format, row_count, columns, date_from, date_to, uploaded_at
		FROM datasets WHERE id = ?`,
		id,
	)

	info, err := scanSQLiteInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, mention.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying dataset: %w", err)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT date, headline, platform, sentiment, location, media_type, source,
			engagements, reach, latitude, longitude
		FROM mentions WHERE dataset_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	ds := &mention.Dataset{DatasetInfo: *info, Mentions: make([]mention.Mention, 0, info.RowCount)}
	for rows.Next() {
		var m mention.Mention
		var day string
		var lat, lng sql.NullFloat64

		err := rows.Scan(
			&day,
			&m.Headline,
			&m.Platform,
			&m.Sentiment,
			&m.Location,
			&m.MediaType,
			&m.Source,
			&m.Engagements,
			&m.Reach,
			&lat,
			&lng,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning mention: %w", err)
		}

		if m.Date, err = time.Parse(mention.DateLayout, day); err != nil {
			return nil, fmt.Errorf("error parsing mention date: %w", err)
		}
		if lat.Valid && lng.Valid {
			m.Latitude, m.Longitude = &lat.Float64, &lng.Float64
		}
		ds.Mentions = append(ds.Mentions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mentions: %w", err)
	}

	return ds, nil
}

// ListDatasets returns all datasets, newest first
func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]mention.DatasetInfo, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, format, row_count, columns, date_from, date_to, uploaded_at
		FROM datasets ORDER BY uploaded_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	infos := []mention.DatasetInfo{}
	for rows.Next() {
		info, err := scanSQLiteInfo(rows)
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

// DeleteDataset removes a dataset and its mentions
func (s *SQLiteStore) DeleteDataset(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return mention.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM mentions WHERE dataset_id = ?`, id); err != nil {
		return fmt.Errorf("error deleting mentions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing delete: %w", err)
	}

	return nil
}

// DeleteOlderThan removes datasets uploaded before cutoff
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM datasets WHERE uploaded_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("error querying expired datasets: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning expired id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired ids: %w", err)
	}

	for _, id := range ids {
		if err := s.DeleteDataset(ctx, id); err != nil && !errors.Is(err, mention.ErrNotFound) {
			return nil, err
		}
	}

	return ids, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteInfo(row scanner) (*mention.DatasetInfo, error) {
	var info mention.DatasetInfo
	var columns string
	var from, to sql.NullString
	var uploaded int64

	err := row.Scan(
		&info.ID,
		&info.Name,
		&info.Format,
		&info.RowCount,
		&columns,
		&from,
		&to,
		&uploaded,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(columns), &info.Columns); err != nil {
		return nil, fmt.Errorf("error unmarshaling columns: %w", err)
	}
	if from.Valid {
		info.From, _ = time.Parse(mention.DateLayout, from.String)
	}
	if to.Valid {
		info.To, _ = time.Parse(mention.DateLayout, to.String)
	}
	info.UploadedAt = time.UnixMilli(uploaded).UTC()

	return &info, nil
}

func formatDay(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(mention.DateLayout)
}
