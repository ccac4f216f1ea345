package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dh-form/domain"
)

//go:embed schema.sql
var schemaSQL string

// HistorySQLite persists calculations in a SQLite database.
type HistorySQLite struct {
	db *sql.DB
}

// OpenHistorySQLite creates or opens the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func OpenHistorySQLite(path string) (*HistorySQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &HistorySQLite{db: db}, nil
}

func (r *HistorySQLite) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *HistorySQLite) Save(ctx context.Context, record domain.CalculationRecord) error {
	rowsJSON, err := json.Marshal(record.Rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO calculations (id, rows_json, result, coord_x, coord_y, coord_z, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, string(rowsJSON), string(resultJSON),
		record.Coord.X, record.Coord.Y, record.Coord.Z,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert calculation %s: %w", record.ID, err)
	}
	return nil
}

const selectCalculation = `SELECT id, rows_json, result, coord_x, coord_y, coord_z, created_at FROM calculations`

func (r *HistorySQLite) Get(ctx context.Context, id string) (domain.CalculationRecord, error) {
	row := r.db.QueryRowContext(ctx, selectCalculation+` WHERE id = ?`, id)
	rec, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CalculationRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *HistorySQLite) Recent(ctx context.Context, limit int) ([]domain.CalculationRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		selectCalculation+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	out := []domain.CalculationRecord{}
	for rows.Next() {
		rec, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(s scanner) (domain.CalculationRecord, error) {
	var (
		rec        domain.CalculationRecord
		rowsJSON   string
		resultJSON string
		createdAt  int64
	)
	if err := s.Scan(&rec.ID, &rowsJSON, &resultJSON,
		&rec.Coord.X, &rec.Coord.Y, &rec.Coord.Z, &createdAt); err != nil {
		return domain.CalculationRecord{}, err
	}
	if err := json.Unmarshal([]byte(rowsJSON), &rec.Rows); err != nil {
		return domain.CalculationRecord{}, fmt.Errorf("decode rows of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
		return domain.CalculationRecord{}, fmt.Errorf("decode result of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, nil
}
