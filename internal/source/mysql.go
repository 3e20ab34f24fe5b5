// Package source materializes query results into datasets the encoders can
// consume. Results are drained eagerly because heading derivation and
// Content-Length both require the full dataset up front.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"csv-exporter/internal/csvenc"
)

// Source produces a dataset from a query.
type Source interface {
	Fetch(ctx context.Context, query string) ([]csvenc.Row, error)
}

// MySQL fetches datasets from a MySQL database.
type MySQL struct {
	db *sql.DB
}

// Open connects and verifies the connection.
func Open(dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQL) Close() error {
	return m.db.Close()
}

// Fetch runs the query inside a read-only repeatable-read transaction so the
// dataset is a consistent snapshot, and converts every cell to its string
// form with column order preserved.
func (m *MySQL) Fetch(ctx context.Context, query string) ([]csvenc.Row, error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{
		ReadOnly:  true,
		Isolation: sql.LevelRepeatableRead,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	var dataset []csvenc.Row
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}

		row := make(csvenc.Row, len(columns))
		for i, col := range columns {
			row[i] = csvenc.Field{Name: col, Value: cellString(values[i])}
		}
		dataset = append(dataset, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	_ = tx.Commit()
	return dataset, nil
}

// cellString converts a driver value to its exported string form without
// fmt.Sprintf on the hot path.
func cellString(val any) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}
