// 包 config：集中读取环境变量与可选的 YAML 颜色文件；服务与命令行工具共用
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"valgkart/internal/layer"
)

// Config：运行配置
type Config struct {
	Addr             string
	APIBase          string
	ResultsFile      string
	ResultsSource    string // file | postgres
	ResultsURL       string // 上游结果文件；仅 postgres 来源时定时导入
	Election         string
	KretsDir         string
	KretsPrefix      string
	KommuneDir       string
	KommunePrefix    string
	BoundaryExt      string
	Zoom             int
	PartyColorsFile  string
	OtherPolicy      layer.OtherPolicy
	BoundaryRedisTTL time.Duration
	LayerCacheTTL    time.Duration
}

// LoadDotenv：依次加载 .env 与 data/env/.env；文件不存在时忽略
func LoadDotenv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
}

// 文档注释：读取配置
// 背景：与入口程序一致，先加载 dotenv，再按变量名读取并填入默认值。
// 异常：数值或枚举非法时返回错误，不静默回退。
func Load() (Config, error) {
	LoadDotenv()
	c := Config{
		Addr:            env("ADDR", ":8080"),
		APIBase:         env("API_BASE", "/api"),
		ResultsFile:     env("RESULTS_FILE", filepath.Join("data", "resultater.csv")),
		ResultsSource:   env("RESULTS_SOURCE", "file"),
		ResultsURL:      os.Getenv("RESULTS_URL"),
		Election:        env("ELECTION", "default"),
		KretsDir:        env("KRETS_DIR", "valgkretser"),
		KretsPrefix:     env("KRETS_PREFIX", "krets"),
		KommuneDir:      env("KOMMUNE_DIR", "kommuner"),
		KommunePrefix:   env("KOMMUNE_PREFIX", "kommune"),
		BoundaryExt:     env("BOUNDARY_EXT", "geojson"),
		PartyColorsFile: os.Getenv("PARTY_COLORS_FILE"),
	}
	var err error
	if c.Zoom, err = envInt("MAP_ZOOM", 10); err != nil {
		return c, err
	}
	if c.OtherPolicy, err = layer.ParseOtherPolicy(os.Getenv("OTHER_POLICY")); err != nil {
		return c, err
	}
	ttl, err := envInt("BOUNDARY_REDIS_TTL_S", 86400)
	if err != nil {
		return c, err
	}
	c.BoundaryRedisTTL = time.Duration(ttl) * time.Second
	if ttl, err = envInt("LAYER_CACHE_TTL_S", 600); err != nil {
		return c, err
	}
	c.LayerCacheTTL = time.Duration(ttl) * time.Second
	switch c.ResultsSource {
	case "file", "postgres":
	default:
		return c, fmt.Errorf("RESULTS_SOURCE must be file or postgres, got %q", c.ResultsSource)
	}
	return c, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid non-negative integer %q", key, s)
	}
	return n, nil
}
