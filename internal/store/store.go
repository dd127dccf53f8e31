// 包 store: PostgreSQL 数据访问层，保存选举结果、缺失要素报告与构建统计
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"valgkart/internal/logger"
	"valgkart/internal/region"
	"valgkart/internal/results"
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	return &Store{db: db}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

var resultColumns = []string{
	"valg", "fylkenummer", "fylkenavn", "kommunenummer", "kommunenavn",
	"stemmekretsnummer", "stemmekretsnavn", "partinavn", "oppslutning",
}

// 文档注释：导入一次选举的结果
// 背景：整体替换：同一事务内先删除该选举的旧记录，再用 COPY 批量写入。
// 约束：编码按补零字符串保存，读取时不做整数转换；失败时回滚，库内保持旧数据。
func (s *Store) ImportRecords(ctx context.Context, election string, recs []results.Record) (n int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, "DELETE FROM _valg_resultater WHERE valg=$1", election); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("_valg_resultater", resultColumns...))
	if err != nil {
		return 0, err
	}
	for _, r := range recs {
		if _, err = stmt.ExecContext(ctx, election,
			string(r.Region.County), r.Names.County,
			string(r.Region.Municipality), r.Names.Municipality,
			string(r.Region.Precinct), r.Names.Precinct,
			r.Party, r.Share); err != nil {
			_ = stmt.Close()
			return 0, err
		}
		n++
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, err
	}
	if err = stmt.Close(); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	logger.L().Info("db_results_import_ok", "election", election, "rows", n)
	return n, nil
}

// LoadResults: 读取一次选举的全部结果并重新校验为结果表
func (s *Store) LoadResults(ctx context.Context, election string) (*results.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT fylkenummer, fylkenavn, kommunenummer, kommunenavn,
		stemmekretsnummer, stemmekretsnavn, partinavn, oppslutning
		FROM _valg_resultater WHERE valg=$1 ORDER BY id`, election)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []results.Record
	for rows.Next() {
		var r results.Record
		var county, muni, prec string
		if err := rows.Scan(&county, &r.Names.County, &muni, &r.Names.Municipality,
			&prec, &r.Names.Precinct, &r.Party, &r.Share); err != nil {
			return nil, err
		}
		r.Region = region.RegionCode{County: region.Code(county), Municipality: region.Code(muni), Precinct: region.Code(prec)}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("no results stored for election %q", election)
	}
	logger.L().Debug("db_results_load_ok", "election", election, "rows", len(recs))
	return results.New(recs)
}

// Elections: 已保存的选举标识
func (s *Store) Elections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT valg FROM _valg_resultater ORDER BY valg")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
