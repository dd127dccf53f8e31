// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"valgkart/internal/api"
	"valgkart/internal/config"
	"valgkart/internal/ingest"
	"valgkart/internal/logger"
	"valgkart/internal/metrics"
	"valgkart/internal/middleware"
	"valgkart/internal/migrate"
	"valgkart/internal/store"
	"valgkart/internal/utils"
)

func main() {
	cfg, err := config.Load()
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	l.Debug("config_api_base", "base", cfg.APIBase)

	// 数据库可选：未启用时仅从文件读取结果，缺失报告与统计不落库
	var st *store.Store
	if utils.PostgresEnabled() || cfg.ResultsSource == "postgres" {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		l.Info("db_open_ok")
		if err := db.Ping(); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
	} else {
		l.Info("db_disabled")
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		rc = nil
	} else {
		l.Info("redis_ping_ok")
	}

	deps, err := cfg.Deps(rc)
	if err != nil {
		l.Error("color_config_error", "err", err, "file", cfg.PartyColorsFile)
		os.Exit(1)
	}

	var tables api.TableSource
	if cfg.ResultsSource == "postgres" {
		tables = &api.StoreTable{Store: st, Election: cfg.Election}
		l.Info("results_source", "source", "postgres", "election", cfg.Election)
	} else {
		tbl, err := cfg.LoadTable(context.Background(), st)
		if err != nil {
			l.Error("results_load_error", "err", err, "file", cfg.ResultsFile)
			os.Exit(1)
		}
		tables = api.StaticTable{T: tbl}
		l.Info("results_source", "source", "file", "records", tbl.Len())
	}

	svc := &api.Service{
		Tables:   tables,
		Deps:     deps,
		Zoom:     cfg.Zoom,
		Election: cfg.Election,
		Store:    st,
		Redis:    rc,
		CacheTTL: cfg.LayerCacheTTL,
	}
	if cfg.ResultsSource == "postgres" && cfg.ResultsURL != "" {
		startIngest(cfg, st, svc, l)
	}
	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(svc)
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())

	handler := logger.AccessMiddleware(l, metrics.RequestDurationMs.Observe)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := os.Getenv("TLS_CERT_PATH")
		keyPath := os.Getenv("TLS_KEY_PATH")
		if certPath == "" {
			certPath = filepath.Join("data", "certs", "server.crt")
		}
		if keyPath == "" {
			keyPath = filepath.Join("data", "certs", "server.key")
		}
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "valgkart.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", certPath)
		_ = s.ListenAndServeTLS(certPath, keyPath)
		return
	}
	l.Info("listening", "addr", cfg.Addr)
	_ = s.ListenAndServe()
}

// startIngest：首次导入（库中无该选举时）并按日刷新；导入成功后重载结果表并使图层缓存失效
func startIngest(cfg config.Config, st *store.Store, svc *api.Service, l *slog.Logger) {
	client := &http.Client{Timeout: 2 * time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	if err := ingest.EnsureInitialized(ctx, client, st, cfg.Election, cfg.ResultsURL); err != nil {
		l.Error("ingest_init_error", "err", err, "src", cfg.ResultsURL)
	}
	cancel()
	ingest.StartDailyOslo(context.Background(), ingest.RefreshHour(), func(ctx context.Context) error {
		if _, err := ingest.FetchAndImport(ctx, client, st, cfg.Election, cfg.ResultsURL); err != nil {
			return err
		}
		svc.Reload(ctx)
		return nil
	})
}
