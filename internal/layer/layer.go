// 包 layer：把富化要素组织为带样式与提示框描述的命名图层，交给渲染端
package layer

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"

	"valgkart/internal/color"
	"valgkart/internal/geo"
	"valgkart/internal/join"
	"valgkart/internal/region"
)

// TooltipField：提示框字段与显示别名
type TooltipField struct {
	Field string `json:"field"`
	Alias string `json:"alias"`
}

// 常用提示框
var (
	PrecinctTooltip = []TooltipField{
		{join.PropBoundaryName, "Valgkrets:"},
		{join.PropParty, "Største parti:"},
		{join.PropShare, "Oppslutning (%):"},
	}
	MunicipalityTooltip = []TooltipField{
		{join.PropMunicipalityName, "Kommune:"},
		{join.PropParty, "Største parti:"},
		{join.PropShare, "Oppslutning (%):"},
	}
	PartyTooltip = []TooltipField{
		{join.PropBoundaryName, "Krets:"},
		{join.PropParty, "Parti"},
		{join.PropShare, "Oppslutning (%)"},
	}
)

// Style：单个要素的绘制样式
type Style struct {
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
}

// Highlight：鼠标悬停样式
type Highlight struct {
	Weight      float64 `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
}

// DefaultHighlight：悬停时加粗边线并提高不透明度
var DefaultHighlight = Highlight{Weight: 2.0, FillOpacity: color.FillOpacity + 0.15}

func fillStyle(fill string) Style {
	return Style{FillColor: fill, FillOpacity: color.FillOpacity, Color: color.LineColor, Weight: color.LineWeight}
}

// 文档注释：图层
// 约束：Styles 与 Features 一一对应；构造器不会产生空图层。
type Layer struct {
	Label     string
	Features  []join.Feature
	Tooltip   []TooltipField
	Styles    []Style
	Highlight Highlight
}

// FeatureCollection：输出为 GeoJSON 文档；样式写入每个要素的 style 属性
func (l Layer) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, ef := range l.Features {
		f := geojson.NewFeature(ef.Source.Geometry)
		f.ID = ef.Source.ID
		for k, v := range ef.Properties {
			f.Properties[k] = v
		}
		if i < len(l.Styles) {
			f.Properties["style"] = l.Styles[i]
		}
		fc.Append(f)
	}
	return fc
}

// Legend：类别图例或连续色阶图例
type Legend struct {
	Title   string              `json:"title,omitempty"`
	Entries []color.LegendEntry `json:"entries,omitempty"`
	Caption string              `json:"caption,omitempty"`
	Stops   []string            `json:"stops,omitempty"`
	Min     float64             `json:"min,omitempty"`
	Max     float64             `json:"max,omitempty"`
}

// Tile：底图瓦片源
type Tile struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
}

// DefaultTiles：Kartverket 灰度/彩色地形图与 OpenStreetMap
var DefaultTiles = []Tile{
	{
		Name:        "topo4graatone",
		URL:         "http://opencache.statkart.no/gatekeeper/gk/gk.open_gmaps?layers=topo4graatone&zoom={z}&x={x}&y={y}",
		Attribution: `<a href="http://www.kartverket.no/">Kartverket</a>`,
	},
	{
		Name:        "topo4",
		URL:         "http://opencache.statkart.no/gatekeeper/gk/gk.open_gmaps?layers=topo4&zoom={z}&x={x}&y={y}",
		Attribution: `<a href="http://www.kartverket.no/">Kartverket</a>`,
	},
	{Name: "openstreetmap", URL: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"},
}

// Set：完整图层集合（渲染端的全部输入）
type Set struct {
	Layers  []Layer
	Frame   geo.MapFrame
	Legend  Legend
	Flagged []region.RegionCode
	Tiles   []Tile
}

type layerJSON struct {
	Label     string                     `json:"label"`
	Tooltip   []TooltipField             `json:"tooltip"`
	Highlight Highlight                  `json:"highlight"`
	Data      *geojson.FeatureCollection `json:"data"`
}

type setJSON struct {
	Layers  []layerJSON  `json:"layers"`
	Frame   geo.MapFrame `json:"frame"`
	Legend  Legend       `json:"legend"`
	Flagged []string     `json:"flagged"`
	Tiles   []Tile       `json:"tiles"`
}

// MarshalJSON：输出 {layers:[{label,tooltip,highlight,data}], frame, legend, flagged, tiles}
func (s *Set) MarshalJSON() ([]byte, error) {
	out := setJSON{
		Layers:  make([]layerJSON, 0, len(s.Layers)),
		Frame:   s.Frame,
		Legend:  s.Legend,
		Flagged: make([]string, 0, len(s.Flagged)),
		Tiles:   s.Tiles,
	}
	for _, l := range s.Layers {
		out.Layers = append(out.Layers, layerJSON{Label: l.Label, Tooltip: l.Tooltip, Highlight: l.Highlight, Data: l.FeatureCollection()})
	}
	for _, rc := range s.Flagged {
		out.Flagged = append(out.Flagged, rc.String())
	}
	return json.Marshal(out)
}
