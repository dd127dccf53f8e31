package aggregate

import (
	"fmt"

	"valgkart/internal/results"
)

// 文档注释：选择规则
// 背景：原先按脚本复制的"最大党 / 单一政党 / 某党领先的区域"三种取值方式统一为可配置规则。
// 约束：Select 返回 ok=false 表示该区域有数据但不进入图层（被排除），与"缺数据"不同。
type Rule interface {
	Select(records []results.Record) (Result, bool)
	Name() string
}

// WinnerRule：最大党
type WinnerRule struct{}

func (WinnerRule) Select(records []results.Record) (Result, bool) { return Winner(records) }
func (WinnerRule) Name() string                                  { return "winner" }

// PartyRule：指定政党的得票率（用于分级设色）
type PartyRule struct{ Party string }

func (p PartyRule) Select(records []results.Record) (Result, bool) {
	return ValueForParty(records, p.Party)
}
func (p PartyRule) Name() string { return "party:" + p.Party }

// WinnerIsRule：仅保留该政党为最大党的区域
type WinnerIsRule struct{ Party string }

func (w WinnerIsRule) Select(records []results.Record) (Result, bool) {
	r, ok := Winner(records)
	if !ok || r.Party != w.Party {
		return Result{}, false
	}
	return r, true
}
func (w WinnerIsRule) Name() string { return "winner-is:" + w.Party }

// ParseRule：从配置/查询参数构造规则（winner | party | winner-is）
func ParseRule(kind, party string) (Rule, error) {
	switch kind {
	case "", "winner":
		return WinnerRule{}, nil
	case "party":
		if party == "" {
			return nil, fmt.Errorf("rule %q requires a party", kind)
		}
		return PartyRule{Party: party}, nil
	case "winner-is":
		if party == "" {
			return nil, fmt.Errorf("rule %q requires a party", kind)
		}
		return WinnerIsRule{Party: party}, nil
	}
	return nil, fmt.Errorf("unknown selection rule %q", kind)
}
