package migrate

import (
	"database/sql"

	"valgkart/internal/logger"
)

// Statements：建表语句（按顺序执行）
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS _valg_resultater (
		id BIGSERIAL PRIMARY KEY,
		valg TEXT NOT NULL,
		fylkenummer TEXT NOT NULL,
		fylkenavn TEXT NOT NULL DEFAULT '',
		kommunenummer TEXT NOT NULL,
		kommunenavn TEXT NOT NULL DEFAULT '',
		stemmekretsnummer TEXT NOT NULL DEFAULT '',
		stemmekretsnavn TEXT NOT NULL DEFAULT '',
		partinavn TEXT NOT NULL,
		oppslutning DOUBLE PRECISION NOT NULL CHECK (oppslutning >= 0 AND oppslutning <= 100)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resultater_valg_kommune ON _valg_resultater(valg, kommunenummer)`,
	`CREATE TABLE IF NOT EXISTS _valg_mangler (
		valg TEXT NOT NULL,
		kommunenummer TEXT NOT NULL,
		stemmekretsnummer TEXT NOT NULL DEFAULT '',
		antall BIGINT NOT NULL DEFAULT 1,
		sist_sett TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (valg, kommunenummer, stemmekretsnummer)
	)`,
	`CREATE TABLE IF NOT EXISTS _valg_stats_total (
		id INT PRIMARY KEY,
		total_builds BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS _valg_stats_daily (
		day DATE PRIMARY KEY,
		builds BIGINT NOT NULL DEFAULT 0
	)`,
	`INSERT INTO _valg_stats_total(id, total_builds)
	 VALUES(1, 0)
	 ON CONFLICT (id) DO NOTHING`,
}

// 背景：首次运行自动创建所需表与索引，保障后续导入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	for i, s := range Statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
