// 包 color：政党类别色与连续色阶；颜色表通过构造参数注入
package color

// PartyColor：有序的政党 → 颜色条目（图例按此顺序输出）
type PartyColor struct {
	Party string `yaml:"party" json:"party"`
	Color string `yaml:"color" json:"color"`
}

// 文档注释：颜色配置
// 背景：类别色、政党色阶与色阶定义；默认值来自 Default()，也可由 YAML 文件整体替换。
// 约束：颜色均为 #rrggbb；Palettes 引用的色阶必须出现在 Definitions 中。
type Table struct {
	Parties        []PartyColor
	Palettes       map[string]string
	Definitions    map[string][]string
	Fallback       string
	DefaultPalette string
	OtherLabel     string
}

// 渲染样式常量
const (
	FallbackColor = "#262626"
	LineColor     = "#262626"
	FillOpacity   = 0.7
	LineWeight    = 0.5
	OtherLabel    = "Andre"
)

// Default：内置颜色表
func Default() Table {
	return Table{
		Parties: []PartyColor{
			{"Arbeiderpartiet", "#d62728"},
			{"Høyre", "#1f77b4"},
			{"Miljøpartiet De Grønne", "#2ca02c"},
			{"Senterpartiet", "#bcbd22"},
			{"SV - Sosialistisk Venstreparti", "#e377c2"},
			{"Fremskrittspartiet", "#8c564b"},
			{"Venstre", "#ff7f0e"},
			{"Folkeaksjonen Nei til mer bompenger", "#7f7f7f"},
			{"Kristelig Folkeparti", "#17becf"},
			{"Rødt", "#9467bd"},
			{OtherLabel, FallbackColor},
		},
		Palettes: map[string]string{
			"Arbeiderpartiet":        "Reds_03",
			"Høyre":                  "PuBu_03",
			"Miljøpartiet De Grønne": "YlGn_05",
			"Senterpartiet":          "YlOrRd_03",
			"Rødt":                   "Reds_05",
		},
		Definitions: map[string][]string{
			"Reds_03":   {"#fee0d2", "#fc9272", "#de2d26"},
			"PuBu_03":   {"#ece7f2", "#a6bddb", "#2b8cbe"},
			"YlGn_05":   {"#ffffcc", "#c2e699", "#78c679", "#31a354", "#006837"},
			"YlOrRd_03": {"#ffeda0", "#feb24c", "#f03b20"},
			"Reds_05":   {"#fee5d9", "#fcae91", "#fb6a4a", "#de2d26", "#a50f15"},
			"viridis":   {"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"},
		},
		Fallback:       FallbackColor,
		DefaultPalette: "viridis",
		OtherLabel:     OtherLabel,
	}
}
