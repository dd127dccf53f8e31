package boundary

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/singleflight"

	"valgkart/internal/logger"
	"valgkart/internal/metrics"
	"valgkart/internal/region"
)

// 文档注释：边界仓库
// 背景：按编码返回要素列表；每个编码只加载一次并在仓库生命周期内缓存，重复调用不会再次触发加载。
// 约束：并发的首次加载经 singleflight 合并；缓存写入在锁内整体替换，条目写入后不可变（先加载后只读）。
// 加载失败（含 NotFoundError）不缓存，后续调用会重试。
type Repository struct {
	name    string
	loader  Loader
	codeKey string

	mu    sync.RWMutex
	cache map[region.Code][]Feature
	group singleflight.Group
}

// NewRepository：codeKey 为要素属性中编码字段名（valgkretsnummer / kommunenummer）
func NewRepository(name string, l Loader, codeKey string) *Repository {
	return &Repository{name: name, loader: l, codeKey: codeKey, cache: make(map[region.Code][]Feature)}
}

// Name：仓库标识（用于日志与指标标签）
func (r *Repository) Name() string { return r.name }

// CodeKey：要素编码字段名
func (r *Repository) CodeKey() string { return r.codeKey }

// LoadTimeout：共享加载的上限；加载与发起它的调用方的取消解耦
const LoadTimeout = 30 * time.Second

// FeaturesFor：返回某编码的要素（按文件内顺序）
// 约束：共享加载在独立 context 中运行，某个调用方取消只让它自己返回 ctx.Err()，其他等待者不受影响。
// 异常：无边界数据时返回 *NotFoundError（不跳过）。
func (r *Repository) FeaturesFor(ctx context.Context, code region.Code) ([]Feature, error) {
	code = code.Normalize(region.MunicipalityWidth)
	if fs, ok := r.cached(code); ok {
		metrics.BoundaryCacheHitsTotal.WithLabelValues(r.name).Inc()
		return fs, nil
	}
	ch := r.group.DoChan(string(code), func() (any, error) {
		if fs, ok := r.cached(code); ok {
			return fs, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()
		fc, err := r.loader.Load(lctx, code)
		metrics.BoundaryLoadsTotal.WithLabelValues(r.name).Inc()
		if err != nil {
			logger.L().Debug("boundary_load_error", "repo", r.name, "code", code, "err", err)
			return nil, err
		}
		fs := r.decode(code, fc)
		r.mu.Lock()
		r.cache[code] = fs
		r.mu.Unlock()
		logger.L().Debug("boundary_load_ok", "repo", r.name, "code", code, "features", len(fs))
		return fs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.L().Debug("boundary_load_shared", "repo", r.name, "code", code)
		}
		return res.Val.([]Feature), nil
	}
}

// Cached：已缓存的编码数量
func (r *Repository) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Repository) cached(code region.Code) ([]Feature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fs, ok := r.cache[code]
	return fs, ok
}

// decode：把 GeoJSON 要素转为只读 Feature；编码无法解析的要素保留空编码（之后会被标记为缺失）
func (r *Repository) decode(code region.Code, fc *geojson.FeatureCollection) []Feature {
	out := make([]Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil {
			continue
		}
		props := map[string]any(f.Properties)
		c, err := region.CodeFromAny(props[r.codeKey], region.PrecinctWidth)
		if err != nil {
			logger.L().Debug("boundary_feature_code_invalid", "repo", r.name, "code", code, "idx", i, "err", err)
		}
		out = append(out, Feature{ID: f.ID, Code: c, Geometry: f.Geometry, Properties: props})
	}
	return out
}
