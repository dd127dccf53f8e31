// 包 geo：地图初始视图（中心点、缩放、范围）计算
package geo

import (
	"github.com/paulmach/orb"

	"valgkart/internal/boundary"
)

// DefaultZoom：未配置时的初始缩放级别
const DefaultZoom = 10

// LatLon：渲染端使用的 (纬度, 经度) 顺序
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EmptyGeometryError：零要素或零顶点时无法计算中心点
type EmptyGeometryError struct {
	Features int
}

func (e *EmptyGeometryError) Error() string {
	if e.Features == 0 {
		return "empty geometry: no features"
	}
	return "empty geometry: features carry no vertices"
}

// 文档注释：取景中心点
// 背景：先对每个环求顶点均值，再对所有环的均值求均值；不是面积加权质心，只用于选择初始视图。
// 约束：输入坐标为 (lon, lat)，返回时交换为 (lat, lon)。
func Centroid(features []boundary.Feature) (LatLon, error) {
	if len(features) == 0 {
		return LatLon{}, &EmptyGeometryError{}
	}
	var sumLon, sumLat float64
	rings := 0
	for _, f := range features {
		for _, ring := range f.Rings() {
			if len(ring) == 0 {
				continue
			}
			var lon, lat float64
			for _, p := range ring {
				lon += p.Lon()
				lat += p.Lat()
			}
			n := float64(len(ring))
			sumLon += lon / n
			sumLat += lat / n
			rings++
		}
	}
	if rings == 0 {
		return LatLon{}, &EmptyGeometryError{Features: len(features)}
	}
	return LatLon{Lat: sumLat / float64(rings), Lon: sumLon / float64(rings)}, nil
}

// Bounds：全部要素的外包矩形；无几何时返回零值
func Bounds(features []boundary.Feature) orb.Bound {
	var b orb.Bound
	first := true
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		fb := f.Geometry.Bound()
		if first {
			b = fb
			first = false
			continue
		}
		b = b.Union(fb)
	}
	return b
}

// MapFrame：初始视图
type MapFrame struct {
	Center LatLon    `json:"center"`
	Zoom   int       `json:"zoom"`
	Bounds [2]LatLon `json:"bounds"`
}

// Frame：中心点 + 缩放 + 范围；zoom<=0 时使用默认值
func Frame(features []boundary.Feature, zoom int) (MapFrame, error) {
	c, err := Centroid(features)
	if err != nil {
		return MapFrame{}, err
	}
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	b := Bounds(features)
	return MapFrame{
		Center: c,
		Zoom:   zoom,
		Bounds: [2]LatLon{
			{Lat: b.Min.Lat(), Lon: b.Min.Lon()},
			{Lat: b.Max.Lat(), Lon: b.Max.Lon()},
		},
	}, nil
}
