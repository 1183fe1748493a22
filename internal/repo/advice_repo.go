package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/chitedze/agroadvisor/internal/model"
	"github.com/chitedze/agroadvisor/internal/pkg/dbutil"
	appErr "github.com/chitedze/agroadvisor/internal/pkg/errors"
)

const fuzzyRankThreshold = 0.1

type AdviceRepo struct {
	db *sqlx.DB
}

func NewAdviceRepo(db *sqlx.DB) *AdviceRepo {
	return &AdviceRepo{db: db}
}

// Lookup searches curated advice in three passes: exact case-insensitive
// match (counted), then full-text rank, then a keyword ILIKE fallback.
func (r *AdviceRepo) Lookup(ctx context.Context, query string) (*model.Advice, error) {
	item, err := r.exactMatch(ctx, query)
	if err == nil {
		return item, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	item, err = r.fuzzyMatch(ctx, query)
	if err == nil {
		return item, nil
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	return r.keywordMatch(ctx, query)
}

func (r *AdviceRepo) exactMatch(ctx context.Context, query string) (*model.Advice, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT id, query, response, search_count, ctime FROM advice WHERE LOWER(query) = LOWER(?)",
		[]interface{}{query},
	)
	var item model.Advice
	err := r.db.QueryRowContext(ctx, sqlStr, args...).
		Scan(&item.ID, &item.Query, &item.Response, &item.SearchCount, &item.Ctime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	countSQL, countArgs := dbutil.Finalize(
		"UPDATE advice SET search_count = search_count + 1 WHERE id = ?",
		[]interface{}{item.ID},
	)
	if _, err := r.db.ExecContext(ctx, countSQL, countArgs...); err != nil {
		return nil, err
	}
	item.SearchCount++
	return &item, nil
}

func (r *AdviceRepo) fuzzyMatch(ctx context.Context, query string) (*model.Advice, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT id, query, response, search_count, ctime, "+
			"ts_rank(to_tsvector('english', query), plainto_tsquery('english', ?)) AS rank "+
			"FROM advice "+
			"WHERE to_tsvector('english', query) @@ plainto_tsquery('english', ?) "+
			"ORDER BY rank DESC LIMIT 1",
		[]interface{}{query, query},
	)
	var item model.Advice
	var rank float64
	err := r.db.QueryRowContext(ctx, sqlStr, args...).
		Scan(&item.ID, &item.Query, &item.Response, &item.SearchCount, &item.Ctime, &rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rank <= fuzzyRankThreshold {
		return nil, appErr.ErrNotFound
	}
	return &item, nil
}

func (r *AdviceRepo) keywordMatch(ctx context.Context, query string) (*model.Advice, error) {
	for _, keyword := range strings.Fields(query) {
		if len(keyword) <= 3 {
			continue
		}
		sqlStr, args := dbutil.Finalize(
			"SELECT id, query, response, search_count, ctime FROM advice WHERE query ILIKE ? LIMIT 1",
			[]interface{}{"%" + keyword + "%"},
		)
		var item model.Advice
		err := r.db.QueryRowContext(ctx, sqlStr, args...).
			Scan(&item.ID, &item.Query, &item.Response, &item.SearchCount, &item.Ctime)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &item, nil
	}
	return nil, appErr.ErrNotFound
}

// Save upserts a curated query/response pair keyed on the query text.
func (r *AdviceRepo) Save(ctx context.Context, query string, response string) error {
	data := map[string]interface{}{
		"query":        query,
		"response":     response,
		"search_count": 1,
		"ctime":        time.Now().Unix(),
	}
	sqlStr, args, err := builder.BuildInsert("advice", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if !dbutil.IsConflict(err) {
			return err
		}
		updSQL, updArgs := dbutil.Finalize(
			"UPDATE advice SET response = ? WHERE LOWER(query) = LOWER(?)",
			[]interface{}{response, query},
		)
		if _, err := r.db.ExecContext(ctx, updSQL, updArgs...); err != nil {
			return err
		}
	}
	return nil
}

// Popular returns the most looked-up advice entries.
func (r *AdviceRepo) Popular(ctx context.Context, limit int) ([]model.Advice, error) {
	if limit <= 0 {
		limit = 10
	}
	where := map[string]interface{}{
		"_orderby": "search_count desc",
		"_limit":   []uint{0, uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("advice", where,
		[]string{"id", "query", "response", "search_count", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Advice, 0)
	for rows.Next() {
		var item model.Advice
		if err := rows.Scan(&item.ID, &item.Query, &item.Response, &item.SearchCount, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
