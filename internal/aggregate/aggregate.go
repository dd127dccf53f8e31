// 包 aggregate：按区域计算显示指标（最大党、指定政党得票率）
package aggregate

import (
	"fmt"

	"valgkart/internal/region"
	"valgkart/internal/results"
)

// NoDataParty：无数据哨兵的政党名
const NoDataParty = "Ingen data"

// 文档注释：聚合结果
// 背景：某区域的显示值（政党与得票率）；每次请求重新计算，不单独持久化。
type Result struct {
	Region region.RegionCode   `json:"region"`
	Party  string              `json:"party"`
	Share  float64             `json:"share"`
	Names  results.DisplayNames `json:"names"`
	NoData bool                `json:"no_data,omitempty"`
}

// NoData：无数据哨兵（未匹配且没有全区记录时使用）
func NoData(rc region.RegionCode) Result {
	return Result{Region: rc, Party: NoDataParty, NoData: true}
}

// FormatShare：得票率显示文本，例如 "(55.00 %)"；无数据返回 "(- %)"
func (r Result) FormatShare() string {
	if r.NoData {
		return "(- %)"
	}
	return fmt.Sprintf("(%4.2f %%)", r.Share)
}

func fromRecord(rec results.Record) Result {
	return Result{Region: rec.Region, Party: rec.Party, Share: rec.Share, Names: rec.Names}
}

// 文档注释：最大党
// 背景：取得票率最大的记录；完全相等时取输入顺序中最先出现者（与源数据按行扫描取最大索引的语义一致）。
// 返回：空输入时 ok=false。
func Winner(records []results.Record) (Result, bool) {
	if len(records) == 0 {
		return Result{}, false
	}
	best := 0
	for i := 1; i < len(records); i++ {
		if records[i].Share > records[best].Share {
			best = i
		}
	}
	return fromRecord(records[best]), true
}

// ValueForParty：指定政党的结果；不存在时 ok=false，由调用方决定排除或归入"其他"
func ValueForParty(records []results.Record, party string) (Result, bool) {
	for _, r := range records {
		if r.Party == party {
			return fromRecord(r), true
		}
	}
	return Result{}, false
}
