package config

import (
	"context"

	"github.com/redis/go-redis/v9"

	"valgkart/internal/boundary"
	"valgkart/internal/layer"
	"valgkart/internal/mapbuild"
	"valgkart/internal/results"
	"valgkart/internal/source"
	"valgkart/internal/store"
)

// Deps：按配置构造边界仓库与图层构造器；rc 为 nil 时不启用 Redis 边界缓存
func (c Config) Deps(rc *redis.Client) (mapbuild.Deps, error) {
	colors, err := c.Resolver()
	if err != nil {
		return mapbuild.Deps{}, err
	}
	krets := boundary.NewRedisLoader(rc, boundary.NewFileLoader(c.KretsDir, c.KretsPrefix, c.BoundaryExt), c.BoundaryRedisTTL)
	kommune := boundary.NewRedisLoader(rc, boundary.NewFileLoader(c.KommuneDir, c.KommunePrefix, c.BoundaryExt), c.BoundaryRedisTTL)
	return mapbuild.Deps{
		Precincts:      boundary.NewRepository("krets", krets, boundary.PrecinctCodeKey),
		Municipalities: boundary.NewRepository("kommune", kommune, boundary.MunicipalityCodeKey),
		Layers:         layer.NewBuilder(colors, c.OtherPolicy),
	}, nil
}

// LoadTable：RESULTS_SOURCE=postgres 时从数据库读取，否则读取 RESULTS_FILE
func (c Config) LoadTable(ctx context.Context, st *store.Store) (*results.Table, error) {
	if c.ResultsSource == "postgres" && st != nil {
		return st.LoadResults(ctx, c.Election)
	}
	return source.LoadResults(c.ResultsFile)
}
