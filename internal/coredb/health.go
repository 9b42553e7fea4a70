// SPDX-License-Identifier: AGPL-3.0-or-later

package coredb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// StorageStats summarises how much of the dispatch history store is in use.
type StorageStats struct {
	Path          string `json:"path"`
	SchemaVersion int64  `json:"schema_version"`
	BytesUsed     int64  `json:"bytes_used"`
	MaxBytes      int64  `json:"max_bytes"`
	Entries       int64  `json:"entries"`
	Dispatches    int64  `json:"dispatches"`
	PayloadBytes  int64  `json:"payload_bytes"`
	PayloadLimit  int64  `json:"payload_limit"`
	NearFull      bool   `json:"near_full"`
}

type pragmaRead struct {
	name string
	dst  *int64
}

// CollectStorageStats reads page and journal usage from the database.
func CollectStorageStats(ctx context.Context, db *DB) (StorageStats, error) {
	if db == nil || db.sql == nil {
		return StorageStats{}, errors.New("coredb: database not initialised")
	}
	conn := db.SQL()
	stats := StorageStats{Path: db.Path(), PayloadLimit: db.opts.JournalMaxBytes}

	var pageSize, pageCount, maxPages int64
	for _, p := range []pragmaRead{
		{"user_version", &stats.SchemaVersion},
		{"page_size", &pageSize},
		{"page_count", &pageCount},
		{"max_page_count", &maxPages},
	} {
		v, err := querySingleInt(ctx, conn, "PRAGMA "+p.name+";")
		if err != nil {
			return stats, fmt.Errorf("coredb: read %s: %w", p.name, err)
		}
		*p.dst = v
	}

	row := conn.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT dispatch_id), COALESCE(SUM(length(payload)),0) FROM core_dispatch_journal`)
	var entries, dispatches, payload sql.NullInt64
	if err := row.Scan(&entries, &dispatches, &payload); err != nil {
		return stats, fmt.Errorf("coredb: journal usage: %w", err)
	}
	stats.Entries = entries.Int64
	stats.Dispatches = dispatches.Int64
	stats.PayloadBytes = payload.Int64

	stats.BytesUsed = pageCount * pageSize
	stats.MaxBytes = maxPages * pageSize
	if stats.MaxBytes <= 0 {
		stats.MaxBytes = db.opts.MaxBytes
	}

	switch {
	case stats.PayloadLimit > 0 && stats.PayloadBytes >= (stats.PayloadLimit*9)/10:
		stats.NearFull = true
	case stats.MaxBytes > 0 && stats.BytesUsed >= (stats.MaxBytes*9)/10:
		stats.NearFull = true
	}
	return stats, nil
}

func querySingleInt(ctx context.Context, conn *sql.DB, stmt string) (int64, error) {
	var out sql.NullInt64
	if err := conn.QueryRowContext(ctx, stmt).Scan(&out); err != nil {
		return 0, err
	}
	return out.Int64, nil
}
