package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotRegistered reports a lookup for a path the registry has never seen
// (or has evicted).
var ErrNotRegistered = errors.New("registry: path not registered")

const recordColumns = `path, payload_digest, payload_size, content_type, created_by, created_at, ttl, has_module, valid, registered_at`

// Lookup returns the record for a path. Invalid rows are returned with
// Valid=false so callers can distinguish "never seen" from "needs re-scan".
func (r *Registry) Lookup(ctx context.Context, path string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM archives WHERE path = ?`, path)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup %s: %w", path, ErrNotRegistered)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", path, err)
	}
	return rec, nil
}

// List returns all records ordered by path.
func (r *Registry) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM archives ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list archives: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	err := s.Scan(
		&rec.Path,
		&rec.PayloadDigest,
		&rec.PayloadSize,
		&rec.ContentType,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.TTL,
		&rec.HasModule,
		&rec.Valid,
		&rec.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
