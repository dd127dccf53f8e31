package boundary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/redis/go-redis/v9"

	"valgkart/internal/logger"
	"valgkart/internal/region"
)

// 文档注释：边界加载器（外部协作者）
// 背景：仓库只关心"给编码拿到 FeatureCollection"；文件、Redis、内存等来源实现同一契约并可串联。
// 约束：数据不存在时返回 *NotFoundError；其他错误原样上抛。
type Loader interface {
	Load(ctx context.Context, code region.Code) (*geojson.FeatureCollection, error)
}

// 文档注释：文件加载器
// 背景：边界文件按 <prefix>-<4 位编码>.<ext> 命名，例如 krets-5001.geojson、kommune-5001.geojson。
type FileLoader struct {
	Dir    string
	Prefix string
	Ext    string
}

// NewFileLoader：Ext 为空时使用 geojson
func NewFileLoader(dir, prefix, ext string) *FileLoader {
	if ext == "" {
		ext = "geojson"
	}
	return &FileLoader{Dir: dir, Prefix: prefix, Ext: strings.TrimPrefix(ext, ".")}
}

// Path：编码对应的文件路径
func (l *FileLoader) Path(code region.Code) string {
	name := fmt.Sprintf("%s-%s.%s", l.Prefix, code.Normalize(region.MunicipalityWidth), l.Ext)
	return filepath.Join(l.Dir, name)
}

func (l *FileLoader) Load(ctx context.Context, code region.Code) (*geojson.FeatureCollection, error) {
	p := l.Path(code)
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Code: code, Source: p}
		}
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		return nil, fmt.Errorf("decode boundary %s: %w", p, err)
	}
	logger.L().Debug("boundary_file_read", "path", p, "features", len(fc.Features))
	return fc, nil
}

// MapLoader：内存加载器（嵌入式数据与测试）
type MapLoader map[region.Code]*geojson.FeatureCollection

func (m MapLoader) Load(ctx context.Context, code region.Code) (*geojson.FeatureCollection, error) {
	fc, ok := m[code]
	if !ok {
		return nil, &NotFoundError{Code: code, Source: "memory"}
	}
	return fc, nil
}

// 文档注释：Redis 读穿缓存加载器
// 背景：多进程共享已解析的边界文档，避免每个实例重复读取大文件；未命中时委托下游加载器并回填。
// 约束：Client 为 nil 时直接透传；Redis 异常只记录日志不影响主流程；缺失结果不缓存。
type RedisLoader struct {
	Client *redis.Client
	Next   Loader
	TTL    time.Duration
	Prefix string
}

func NewRedisLoader(rc *redis.Client, next Loader, ttl time.Duration) *RedisLoader {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLoader{Client: rc, Next: next, TTL: ttl, Prefix: "boundary:"}
}

func (l *RedisLoader) key(code region.Code) string {
	if n, ok := l.Next.(*FileLoader); ok {
		return l.Prefix + n.Prefix + ":" + string(code)
	}
	return l.Prefix + string(code)
}

func (l *RedisLoader) Load(ctx context.Context, code region.Code) (*geojson.FeatureCollection, error) {
	if l.Client == nil {
		return l.Next.Load(ctx, code)
	}
	key := l.key(code)
	s, err := l.Client.Get(ctx, key).Result()
	if err == nil && s != "" {
		if fc, e := geojson.UnmarshalFeatureCollection([]byte(s)); e == nil {
			logger.L().Debug("boundary_redis_hit", "key", key)
			return fc, nil
		}
		logger.L().Warn("boundary_redis_decode_error", "key", key)
	} else if err != nil && !errors.Is(err, redis.Nil) {
		logger.L().Debug("boundary_redis_error", "key", key, "err", err)
	}
	fc, err := l.Next.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	if b, e := fc.MarshalJSON(); e == nil {
		if e := l.Client.Set(ctx, key, b, l.TTL).Err(); e != nil {
			logger.L().Debug("boundary_redis_set_error", "key", key, "err", e)
		}
	}
	return fc, nil
}
