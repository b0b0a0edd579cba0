package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/Market-Dashboard-Backend/internal/model"
)

// ParseDate parses a stored "2006-01-02" series date as UTC midnight.
func ParseDate(str string) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, str)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
	}
	return d.UTC(), nil
}

// Timestamps are stored as unix nanoseconds so ordering survives sub-second writes.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func fromNullableNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
