package feed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// HistoryColumns is the header expected by ImportHistory. Times are
// HH:MM[:SS] past midnight of date and may exceed 24:00; an empty time
// means it was not recorded.
var HistoryColumns = []string{"date", "trip_id", "stop_sequence", "actual_arrival", "actual_departure"}

// ImportHistoryFile imports AVL actuals from a CSV file.
func (s *Store) ImportHistoryFile(ctx context.Context, path string) (ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportStats{}, err
	}
	defer func() { _ = f.Close() }()
	return s.ImportHistory(ctx, f)
}

// ImportHistory reads AVL actuals as CSV and upserts them. Rows for unknown
// trips are counted as skipped.
func (s *Store) ImportHistory(ctx context.Context, r io.Reader) (ImportStats, error) {
	var stats ImportStats
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return stats, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer func() { _ = tx.Rollback() }()

	known := make(map[string]bool)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseHistoryRow(rec, idx)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		ok, seen := known[row.trip]
		if !seen {
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips WHERE id = ?`, row.trip).Scan(&n); err != nil {
				return stats, err
			}
			ok = n > 0
			known[row.trip] = ok
		}
		if !ok {
			stats.Skipped++
			continue
		}
		if _, err := tx.ExecContext(ctx, `
            INSERT OR REPLACE INTO actuals (trip_id, stop_sequence, date, arrival_s, departure_s)
            VALUES (?, ?, ?, ?, ?)`, row.trip, row.seq, row.date, row.arr, row.dep); err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		stats.Actuals++
	}
	if err := tx.Commit(); err != nil {
		return stats, err
	}
	if stats.Skipped > 0 {
		s.log.Warnf("history import skipped %d rows for unknown trips", stats.Skipped)
	}
	s.log.Infof("imported %d actuals", stats.Actuals)
	return stats, nil
}

type historyRow struct {
	date     string
	trip     string
	seq      int
	arr, dep sql.NullInt64
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range HistoryColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	return idx, nil
}

func parseHistoryRow(rec []string, idx map[string]int) (historyRow, error) {
	var row historyRow
	date, err := time.Parse("2006-01-02", strings.TrimSpace(rec[idx["date"]]))
	if err != nil {
		return row, fmt.Errorf("date: %w", err)
	}
	row.date = date.Format(dateKey)
	row.trip = strings.TrimSpace(rec[idx["trip_id"]])
	if row.trip == "" {
		return row, fmt.Errorf("empty trip_id")
	}
	if row.seq, err = strconv.Atoi(strings.TrimSpace(rec[idx["stop_sequence"]])); err != nil {
		return row, fmt.Errorf("stop_sequence: %w", err)
	}
	if row.arr, err = parseClock(rec[idx["actual_arrival"]]); err != nil {
		return row, fmt.Errorf("actual_arrival: %w", err)
	}
	if row.dep, err = parseClock(rec[idx["actual_departure"]]); err != nil {
		return row, fmt.Errorf("actual_departure: %w", err)
	}
	return row, nil
}

// parseClock reads HH:MM or HH:MM:SS as seconds past midnight.
func parseClock(s string) (sql.NullInt64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullInt64{}, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return sql.NullInt64{}, fmt.Errorf("invalid time %q", s)
	}
	var secs int64
	mult := []int64{3600, 60, 1}
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 || (i > 0 && n >= 60) {
			return sql.NullInt64{}, fmt.Errorf("invalid time %q", s)
		}
		secs += n * mult[i]
	}
	return sql.NullInt64{Int64: secs, Valid: true}, nil
}
