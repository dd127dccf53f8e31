package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"valgkart/internal/aggregate"
	"valgkart/internal/config"
	"valgkart/internal/logger"
	"valgkart/internal/mapbuild"
	"valgkart/internal/region"
)

// 文档注释：一次性构建图层集合并输出到标准输出
// 背景：与 /api/layers 同一流水线；参数来自 BUILD_GRANULARITY / BUILD_RULE / BUILD_PARTY / BUILD_LAYERING，目标编码来自命令行参数。
// 约束：日志固定写标准错误，标准输出只有 JSON；有缺失要素时退出码为 2。
func main() { os.Exit(run(os.Args[1:])) }

func run(args []string) int {
	cfg, err := config.Load()
	l := logger.SetupWriter(os.Stderr)
	if err != nil {
		l.Error("config_error", "err", err)
		return 1
	}
	if len(args) == 0 {
		l.Error("targets_missing", "usage", "valgkart-build <kommune|fylke> [...]")
		return 1
	}
	gran := os.Getenv("BUILD_GRANULARITY")
	if gran == "" {
		gran = "precinct"
	}
	level, ok := region.ParseLevel(gran)
	if !ok {
		l.Error("granularity_invalid", "value", gran)
		return 1
	}
	width := region.MunicipalityWidth
	if level == region.LevelCounty {
		width = region.CountyWidth
	}
	var targets []region.Code
	for _, a := range args {
		c, err := region.ParseCode(a, width)
		if err != nil {
			l.Error("target_invalid", "value", a, "err", err)
			return 1
		}
		targets = append(targets, c)
	}
	party := os.Getenv("BUILD_PARTY")
	rule, err := aggregate.ParseRule(os.Getenv("BUILD_RULE"), party)
	if err != nil {
		l.Error("rule_invalid", "err", err)
		return 1
	}
	layering, err := mapbuild.ParseLayering(os.Getenv("BUILD_LAYERING"))
	if err != nil {
		l.Error("layering_invalid", "err", err)
		return 1
	}

	deps, err := cfg.Deps(nil)
	if err != nil {
		l.Error("color_config_error", "err", err, "file", cfg.PartyColorsFile)
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	tbl, err := cfg.LoadTable(ctx, nil)
	if err != nil {
		l.Error("results_load_error", "err", err, "file", cfg.ResultsFile)
		return 1
	}
	b, err := mapbuild.New(deps, mapbuild.Config{Granularity: level, Rule: rule, Layering: layering, Party: party, Zoom: cfg.Zoom})
	if err != nil {
		l.Error("build_config_invalid", "err", err)
		return 1
	}
	set, err := b.Build(ctx, tbl, targets)
	if err != nil {
		l.Error("build_error", "err", err)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(set); err != nil {
		l.Error("output_error", "err", err)
		return 1
	}
	if len(set.Flagged) > 0 {
		l.Warn("flagged_features", "count", len(set.Flagged))
		return 2
	}
	return 0
}
