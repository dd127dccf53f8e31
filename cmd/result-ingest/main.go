package main

import (
	"context"
	"os"
	"time"

	"valgkart/internal/config"
	"valgkart/internal/logger"
	"valgkart/internal/migrate"
	"valgkart/internal/source"
	"valgkart/internal/store"
	"valgkart/internal/utils"
)

func main() { os.Exit(run(os.Args[1:])) }

// 文档注释：把结果文件导入 PostgreSQL
// 背景：服务以 RESULTS_SOURCE=postgres 运行时从 _valg_resultater 读取；本工具按 ELECTION 整体替换一次选举的数据。
// 约束：先完整校验文件再写库；文件路径取第一个参数，缺省为 RESULTS_FILE。
func run(args []string) int {
	cfg, err := config.Load()
	l := logger.Setup()
	if err != nil {
		l.Error("config_error", "err", err)
		return 1
	}
	path := cfg.ResultsFile
	if len(args) > 0 {
		path = args[0]
	}
	tbl, err := source.LoadResults(path)
	if err != nil {
		l.Error("results_load_error", "err", err, "file", path)
		return 1
	}
	l.Info("results_loaded", "file", path, "records", tbl.Len())

	st, err := store.Open(utils.BuildPostgresDSNFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		return 1
	}
	defer st.Close()
	if err := migrate.EnsureSchema(st.DB()); err != nil {
		l.Error("schema_error", "err", err)
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	start := time.Now()
	n, err := st.ImportRecords(ctx, cfg.Election, tbl.Records())
	if err != nil {
		l.Error("import_error", "err", err, "election", cfg.Election)
		return 1
	}
	l.Info("import_ok", "election", cfg.Election, "records", n, "ms", time.Since(start).Milliseconds())
	return 0
}
