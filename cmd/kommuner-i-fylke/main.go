package main

import (
	"context"
	"fmt"
	"os"

	"valgkart/internal/config"
	"valgkart/internal/logger"
	"valgkart/internal/region"
)

// 列出一个县（fylke）在结果表中的全部市编码，每行一个
func main() {
	cfg, err := config.Load()
	l := logger.Setup()
	if err != nil {
		l.Error("config_error", "err", err)
		os.Exit(1)
	}
	if len(os.Args) != 2 {
		l.Error("county_missing", "usage", "kommuner-i-fylke <fylke>")
		os.Exit(1)
	}
	county, err := region.ParseCode(os.Args[1], region.CountyWidth)
	if err != nil {
		l.Error("county_invalid", "value", os.Args[1], "err", err)
		os.Exit(1)
	}
	tbl, err := cfg.LoadTable(context.Background(), nil)
	if err != nil {
		l.Error("results_load_error", "err", err, "file", cfg.ResultsFile)
		os.Exit(1)
	}
	codes := tbl.MunicipalitiesIn(county)
	if len(codes) == 0 {
		l.Warn("county_empty", "county", county)
	}
	for _, c := range codes {
		fmt.Println(c)
	}
}
