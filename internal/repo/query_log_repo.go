package repo

import (
	"context"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/chitedze/agroadvisor/internal/model"
	"github.com/chitedze/agroadvisor/internal/pkg/dbutil"
)

type QueryLogRepo struct {
	db *sqlx.DB
}

func NewQueryLogRepo(db *sqlx.DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

// Log records one answered query with its source label.
func (r *QueryLogRepo) Log(ctx context.Context, query string, source string) error {
	data := map[string]interface{}{
		"user_query":      query,
		"response_source": source,
		"ctime":           time.Now().Unix(),
	}
	sqlStr, args, err := builder.BuildInsert("query_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// List returns the most recent log entries.
func (r *QueryLogRepo) List(ctx context.Context, limit int) ([]model.QueryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	where := map[string]interface{}{
		"_orderby": "ctime desc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("query_logs", where,
		[]string{"id", "user_query", "response_source", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.QueryLog, 0)
	for rows.Next() {
		var item model.QueryLog
		if err := rows.Scan(&item.ID, &item.Query, &item.Source, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteBefore removes log entries older than the cutoff, returning how
// many rows went away.
func (r *QueryLogRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(
		"DELETE FROM query_logs WHERE ctime < ?",
		[]interface{}{cutoff},
	)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
