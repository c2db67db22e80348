package db

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertValueSQL = `INSERT INTO aa (a) VALUES ($1)`
	listValuesSQL  = `SELECT * FROM aa`
)

// ValueRepo reads and writes the integer column a of table aa. Nothing is
// unique or ordered; inserting the same value twice stores two rows.
type ValueRepo struct {
	pool *Pool
}

func NewValueRepo(pool *Pool) *ValueRepo {
	return &ValueRepo{pool: pool}
}

// Insert stores n as a new row and returns the command tag, which carries
// the number of rows affected.
func (r *ValueRepo) Insert(ctx context.Context, n int32) (pgconn.CommandTag, error) {
	var tag pgconn.CommandTag
	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		tag, err = conn.Exec(ctx, insertValueSQL, n)
		return err
	})
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to insert value: %w", err)
	}
	return tag, nil
}

// List returns column 0 of every row. Rows whose first column is NULL or
// not an int32-sized integer are skipped.
func (r *ValueRepo) List(ctx context.Context) ([]int32, error) {
	values := []int32{}
	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, listValuesSQL)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			row, err := rows.Values()
			if err != nil {
				continue
			}
			if v, ok := firstInt32(row); ok {
				values = append(values, v)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list values: %w", err)
	}
	return values, nil
}

func firstInt32(row []any) (int32, bool) {
	if len(row) == 0 {
		return 0, false
	}

	switch v := row[0].(type) {
	case int32:
		return v, true
	case int16:
		return int32(v), true
	case int8:
		return int32(v), true
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int32(v), true
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int32(v), true
	default:
		return 0, false
	}
}
