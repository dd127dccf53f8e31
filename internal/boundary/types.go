// 包 boundary：边界要素与按编码加载的边界仓库
package boundary

import (
	"fmt"

	"github.com/paulmach/orb"

	"valgkart/internal/region"
)

// 属性键：投票区文件与市文件中保存编码的字段
const (
	PrecinctCodeKey     = "valgkretsnummer"
	MunicipalityCodeKey = "kommunenummer"
)

// 文档注释：边界要素
// 背景：一个（多）多边形及其行政区编码与原始属性；坐标按 GeoJSON 约定为 (lon, lat)。
// 约束：仓库交出的要素视为只读；富化时由 join 包复制属性生成新值，不回写此处。
type Feature struct {
	ID         any
	Code       region.Code
	Geometry   orb.Geometry
	Properties map[string]any
}

// Rings：展开为环列表（Polygon 的各环、MultiPolygon 各面的各环）；其他几何返回空
func (f Feature) Rings() []orb.Ring {
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		return []orb.Ring(g)
	case orb.MultiPolygon:
		var out []orb.Ring
		for _, p := range g {
			out = append(out, p...)
		}
		return out
	case orb.Ring:
		return []orb.Ring{g}
	}
	return nil
}

// Property：读取原始属性
func (f Feature) Property(key string) any {
	if f.Properties == nil {
		return nil
	}
	return f.Properties[key]
}

// CloneProperties：属性浅拷贝，供富化写入
func (f Feature) CloneProperties() map[string]any {
	out := make(map[string]any, len(f.Properties)+4)
	for k, v := range f.Properties {
		out[k] = v
	}
	return out
}

// 文档注释：边界缺失错误
// 背景：无边界的区域无法渲染，必须上报而不是静默跳过；携带出错编码与尝试的来源便于排查。
type NotFoundError struct {
	Code   region.Code
	Source string
}

func (e *NotFoundError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("boundary data not found for code %s (%s)", e.Code, e.Source)
	}
	return fmt.Sprintf("boundary data not found for code %s", e.Code)
}
