// 包 results：选举结果的统一内存表示（ResultRecord / Table）
package results

import (
	"fmt"

	"valgkart/internal/region"
)

// 源表格列名（valgresultat.no 导出格式）
const (
	ColCounty           = "Fylkenummer"
	ColCountyName       = "Fylkenavn"
	ColMunicipality     = "Kommunenummer"
	ColMunicipalityName = "Kommunenavn"
	ColPrecinct         = "Stemmekretsnummer"
	ColPrecinctName     = "Stemmekretsnavn"
	ColParty            = "Partinavn"
	ColShare            = "Oppslutning prosentvis"
)

// DisplayNames：各层级的显示名称
type DisplayNames struct {
	County       string `json:"fylke,omitempty"`
	Municipality string `json:"kommune,omitempty"`
	Precinct     string `json:"krets,omitempty"`
}

// 文档注释：单条结果记录
// 背景：一行表示某政党在某区域的得票率；解析后不可变，所有派生计算均基于副本。
// 约束：Share ∈ [0,100]；Region 的各级编码均已补零。
type Record struct {
	Region region.RegionCode `json:"region"`
	Party  string            `json:"party"`
	Share  float64           `json:"share"`
	Names  DisplayNames      `json:"names"`
}

// Name：指定层级的显示名
func (r Record) Name(level region.Level) string {
	switch level {
	case region.LevelCounty:
		return r.Names.County
	case region.LevelMunicipality:
		return r.Names.Municipality
	}
	return r.Names.Precinct
}

// 文档注释：结构错误
// 背景：缺列、数值非法或违反全区不变式时返回；对整张表致命，调用方不得静默修正。
type SchemaError struct {
	Row    int // 从 1 开始；0 表示表级错误
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema error: row %d field %q: %s", e.Row, e.Field, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("schema error: field %q: %s", e.Field, e.Reason)
	}
	return "schema error: " + e.Reason
}
