// 包 api：集中注册 HTTP API 路由以解耦主入口，便于后续扩展与替换
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"valgkart/internal/aggregate"
	"valgkart/internal/boundary"
	"valgkart/internal/color"
	"valgkart/internal/geo"
	"valgkart/internal/logger"
	"valgkart/internal/mapbuild"
	"valgkart/internal/metrics"
	"valgkart/internal/region"
	"valgkart/internal/store"
)

// Service：路由依赖；Store 与 Redis 均可为空
type Service struct {
	Tables   TableSource
	Deps     mapbuild.Deps
	Zoom     int
	Election string
	Store    *store.Store
	Redis    *redis.Client
	CacheTTL time.Duration

	// 图层缓存代次：进程启动时取时间戳，每次 Reload 递增；写入缓存键，旧代次的条目不再命中
	gen atomic.Int64
}

func (svc *Service) generation() int64 {
	svc.gen.CompareAndSwap(0, time.Now().UnixNano())
	return svc.gen.Load()
}

// 文档注释：重新加载结果表
// 背景：导入新数据后调用；清空已加载的表并让图层缓存失效。
// 约束：表来源不支持重载时返回 false，缓存仍然失效；Redis 中旧代次的键尽力删除，删不掉的按 TTL 过期。
func (svc *Service) Reload(ctx context.Context) bool {
	rs, ok := svc.Tables.(interface{ Reset() })
	if ok {
		rs.Reset()
	}
	svc.generation()
	svc.gen.Add(1)
	if svc.Redis != nil {
		n, err := svc.dropLayerCache(ctx)
		if err != nil {
			logger.L().Warn("layer_cache_drop_error", "election", svc.Election, "err", err)
		}
		logger.L().Debug("layer_cache_dropped", "election", svc.Election, "keys", n)
	}
	logger.L().Info("results_reset", "election", svc.Election, "reloaded", ok)
	return ok
}

func (svc *Service) dropLayerCache(ctx context.Context) (int, error) {
	var cursor uint64
	n := 0
	for {
		keys, next, err := svc.Redis.Scan(ctx, cursor, "layers:"+svc.Election+":*", 500).Result()
		if err != nil {
			return n, err
		}
		if len(keys) > 0 {
			if err := svc.Redis.Del(ctx, keys...).Err(); err != nil {
				return n, err
			}
			n += len(keys)
		}
		if next == 0 {
			return n, nil
		}
		cursor = next
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, b []byte, cache string) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.Header().Set("x-cache", cache)
	_, _ = w.Write(b)
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 /api 前缀
func BuildRoutes(svc *Service) *http.ServeMux {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/layers", svc.handleLayers)

	apiMux.HandleFunc("/kommuner", func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues("kommuner").Inc()
		tbl, err := svc.Tables.Table(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
			return
		}
		codes := tbl.Municipalities()
		if f := r.URL.Query().Get("fylke"); f != "" {
			county, err := region.ParseCode(f, region.CountyWidth)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
				return
			}
			codes = tbl.MunicipalitiesIn(county)
		}
		writeJSON(w, http.StatusOK, named(codes, func(c region.Code) string { return tbl.NameOf(region.LevelMunicipality, c) }))
	})

	apiMux.HandleFunc("/fylker", func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues("fylker").Inc()
		tbl, err := svc.Tables.Table(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, named(tbl.Counties(), func(c region.Code) string { return tbl.NameOf(region.LevelCounty, c) }))
	})

	apiMux.HandleFunc("/partier", func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues("partier").Inc()
		tbl, err := svc.Tables.Table(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, tbl.Parties())
	})

	apiMux.HandleFunc("/mangler", func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues("mangler").Inc()
		if svc.Store == nil {
			writeJSON(w, http.StatusOK, []store.FlaggedEntry{})
			return
		}
		entries, err := svc.Store.Flagged(r.Context(), svc.Election, 100)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, entries)
	})

	apiMux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues("stats").Inc()
		t := &store.Totals{}
		if svc.Store != nil {
			var err error
			if t, err = svc.Store.GetTotals(r.Context()); err != nil {
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, t)
	})

	// 导入新数据后由运维触发；文件来源无需重载
	apiMux.HandleFunc("/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "POST only"})
			return
		}
		ok := svc.Reload(r.Context())
		writeJSON(w, http.StatusOK, map[string]bool{"reloaded": ok})
	})

	return apiMux
}

// CodeName：编码与显示名
type CodeName struct {
	Code string `json:"kode"`
	Name string `json:"navn"`
}

func named(codes []region.Code, name func(region.Code) string) []CodeName {
	out := make([]CodeName, 0, len(codes))
	for _, c := range codes {
		out = append(out, CodeName{Code: string(c), Name: name(c)})
	}
	return out
}

// layerQuery：/layers 的查询参数
type layerQuery struct {
	targets []region.Code
	cfg     mapbuild.Config
}

// 文档注释：解析 /layers 查询参数
// 背景：kommune=5001,5002 或 fylke=50；粒度默认 precinct（给出 fylke 时为 county）。
// 异常：参数非法时返回错误，由调用方映射为 400。
func parseLayerQuery(q map[string][]string, zoom int) (layerQuery, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	var lq layerQuery
	gran := get("granularity")
	list, width := get("kommune"), region.MunicipalityWidth
	if list == "" {
		list, width = get("fylke"), region.CountyWidth
		if gran == "" {
			gran = "county"
		}
	}
	if list == "" {
		return lq, errors.New("kommune or fylke is required")
	}
	if gran == "" {
		gran = "precinct"
	}
	level, ok := region.ParseLevel(gran)
	if !ok {
		return lq, errors.New("unknown granularity " + gran)
	}
	if (level == region.LevelCounty) != (width == region.CountyWidth) {
		return lq, errors.New("county granularity takes fylke codes, other granularities take kommune codes")
	}
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		c, err := region.ParseCode(s, width)
		if err != nil {
			return lq, err
		}
		lq.targets = append(lq.targets, c)
	}
	rule, err := aggregate.ParseRule(get("rule"), get("party"))
	if err != nil {
		return lq, err
	}
	layering, err := mapbuild.ParseLayering(get("layering"))
	if err != nil {
		return lq, err
	}
	lq.cfg = mapbuild.Config{Granularity: level, Rule: rule, Layering: layering, Party: get("party"), Zoom: zoom}
	return lq, nil
}

func (svc *Service) cacheKey(r *http.Request) string {
	return "layers:" + svc.Election + ":" + strconv.FormatInt(svc.generation(), 36) + ":" + r.URL.Query().Encode()
}

func (svc *Service) handleLayers(w http.ResponseWriter, r *http.Request) {
	metrics.RequestsTotal.WithLabelValues("layers").Inc()
	ctx := r.Context()
	lq, err := parseLayerQuery(r.URL.Query(), svc.Zoom)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	key := svc.cacheKey(r)
	if svc.Redis != nil {
		if s, _ := svc.Redis.Get(ctx, key).Result(); s != "" {
			metrics.LayerCacheHitsTotal.Inc()
			writeRaw(w, []byte(s), "hit")
			return
		}
		metrics.LayerCacheMissesTotal.Inc()
	}
	tbl, err := svc.Tables.Table(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	b, err := mapbuild.New(svc.Deps, lq.cfg)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	set, err := b.Build(ctx, tbl, lq.targets)
	if err != nil {
		status, code := classify(err)
		writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
		return
	}
	body, err := json.Marshal(set)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if svc.Redis != nil {
		ttl := svc.CacheTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		if err := svc.Redis.Set(ctx, key, body, ttl).Err(); err != nil {
			logger.L().Debug("layer_cache_set_error", "key", key, "err", err)
		}
	}
	if svc.Store != nil {
		// 统计与缺失报告不影响响应
		go func(flagged []region.RegionCode) {
			bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			flagged = freshFlagged(bg, svc.Redis, svc.Election, flagged, time.Now())
			if err := svc.Store.RecordFlagged(bg, svc.Election, flagged); err != nil {
				logger.L().Warn("db_flagged_error", "err", err)
			}
			if err := svc.Store.IncrStats(bg); err != nil {
				logger.L().Warn("db_stats_error", "err", err)
			}
		}(set.Flagged)
	}
	writeRaw(w, body, "miss")
}

// classify：结构性错误到 HTTP 状态码
func classify(err error) (int, string) {
	var nf *boundary.NotFoundError
	var eg *geo.EmptyGeometryError
	var de *color.DomainError
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound, string(nf.Code)
	case errors.As(err, &eg):
		return http.StatusUnprocessableEntity, ""
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity, de.Palette
	}
	return http.StatusInternalServerError, ""
}
