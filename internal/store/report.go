package store

import (
	"context"
	"database/sql"
	"errors"

	"valgkart/internal/logger"
	"valgkart/internal/region"
)

// RecordFlagged: 累计缺失要素（无结果的边界）出现次数，供数据维护者排查；启用 Redis 时上游按天去重
func (s *Store) RecordFlagged(ctx context.Context, election string, codes []region.RegionCode) error {
	for _, c := range codes {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO _valg_mangler(valg, kommunenummer, stemmekretsnummer, antall, sist_sett)
			VALUES($1, $2, $3, 1, now())
			ON CONFLICT (valg, kommunenummer, stemmekretsnummer)
			DO UPDATE SET antall=_valg_mangler.antall+1, sist_sett=now()`,
			election, string(c.Municipality), string(c.Precinct)); err != nil {
			return err
		}
	}
	logger.L().Debug("db_flagged_recorded", "election", election, "count", len(codes))
	return nil
}

// FlaggedEntry: 缺失报告条目
type FlaggedEntry struct {
	Municipality string `json:"kommunenummer"`
	Precinct     string `json:"stemmekretsnummer"`
	Count        int64  `json:"antall"`
}

// Flagged: 按出现次数倒序列出缺失要素
func (s *Store) Flagged(ctx context.Context, election string, limit int) ([]FlaggedEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT kommunenummer, stemmekretsnummer, antall FROM _valg_mangler
		WHERE valg=$1 ORDER BY antall DESC, kommunenummer, stemmekretsnummer LIMIT $2`, election, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FlaggedEntry
	for rows.Next() {
		var e FlaggedEntry
		if err := rows.Scan(&e.Municipality, &e.Precinct, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// IncrStats: 成功构建后递增总计与当日计数
func (s *Store) IncrStats(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE _valg_stats_total SET total_builds=total_builds+1 WHERE id=1"); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO _valg_stats_daily(day, builds) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET builds=_valg_stats_daily.builds+1"); err != nil {
		return err
	}
	logger.L().Debug("stats_incr")
	return nil
}

// Totals: 累计与当日构建次数
type Totals struct {
	Total int64 `json:"total"`
	Today int64 `json:"today"`
}

// GetTotals: 读取累计与当日构建次数；缺行时为 0，其他错误原样返回
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, "SELECT total_builds FROM _valg_stats_total WHERE id=1").Scan(&t.Total)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	err = s.db.QueryRowContext(ctx, "SELECT builds FROM _valg_stats_daily WHERE day=current_date").Scan(&t.Today)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
