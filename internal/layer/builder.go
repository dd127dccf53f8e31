package layer

import (
	"fmt"
	"math"

	"valgkart/internal/aggregate"
	"valgkart/internal/color"
	"valgkart/internal/join"
)

// OtherPolicy：颜色表中不存在的政党如何处理
type OtherPolicy int

const (
	OtherBucket OtherPolicy = iota // 归入末尾的"Andre"图层
	OtherDrop                      // 丢弃该要素
)

func (p OtherPolicy) String() string {
	if p == OtherDrop {
		return "drop"
	}
	return "bucket"
}

// ParseOtherPolicy：bucket | drop；空串为 bucket
func ParseOtherPolicy(s string) (OtherPolicy, error) {
	switch s {
	case "", "bucket", "andre":
		return OtherBucket, nil
	case "drop":
		return OtherDrop, nil
	}
	return OtherBucket, fmt.Errorf("unknown other policy %q", s)
}

// Builder：图层构造器
type Builder struct {
	Colors *color.Resolver
	Policy OtherPolicy
}

func NewBuilder(colors *color.Resolver, policy OtherPolicy) *Builder {
	return &Builder{Colors: colors, Policy: policy}
}

// OtherSuffix：与已知类别重名时附加到“其他”图层标签
const OtherSuffix = " (øvrige)"

type bucket struct {
	label string
	feats []join.Feature
}

// 文档注释：按类别分层
// 背景：按 partinavn（选择结果的政党）分组，保持类别首次出现顺序；被规则排除的要素不参与。
// 约束：
//   - 未知政党按 Policy 归入末尾的 OtherLabel 图层或丢弃；名为 OtherLabel 的已知政党是普通类别，
//     此时末尾图层标签加 OtherSuffix 以免重名
//   - 无数据要素始终单独成为最后一层，便于渲染端区分显示
//   - 不输出空图层
func (b *Builder) ByCategory(features []join.Feature, tooltip []TooltipField) []Layer {
	var order []*bucket
	idx := map[string]*bucket{}
	other := &bucket{label: b.Colors.OtherLabel()}
	noData := &bucket{label: aggregate.NoDataParty}
	for _, f := range features {
		if f.Status == join.Excluded {
			continue
		}
		party := f.Result.Party
		switch {
		case f.Result.NoData:
			noData.feats = append(noData.feats, f)
			continue
		case !b.Colors.Known(party):
			if b.Policy == OtherBucket {
				other.feats = append(other.feats, f)
			}
			continue
		}
		bk, ok := idx[party]
		if !ok {
			bk = &bucket{label: party}
			idx[party] = bk
			order = append(order, bk)
		}
		bk.feats = append(bk.feats, f)
	}
	if _, clash := idx[other.label]; clash {
		other.label += OtherSuffix
	}
	order = append(order, other, noData)
	out := make([]Layer, 0, len(order))
	for _, bk := range order {
		if len(bk.feats) == 0 {
			continue
		}
		out = append(out, b.categorical(bk.label, bk.feats, tooltip))
	}
	return out
}

// ByRegion：一个区域（市）一层，要素按各自类别着色；全部被排除时 ok=false
func (b *Builder) ByRegion(label string, features []join.Feature, tooltip []TooltipField) (Layer, bool) {
	kept := make([]join.Feature, 0, len(features))
	for _, f := range features {
		if f.Status != join.Excluded {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return Layer{}, false
	}
	return b.categorical(label, kept, tooltip), true
}

func (b *Builder) categorical(label string, feats []join.Feature, tooltip []TooltipField) Layer {
	l := Layer{Label: label, Features: feats, Tooltip: tooltip, Styles: make([]Style, len(feats)), Highlight: DefaultHighlight}
	for i, f := range feats {
		fill := b.Colors.Fallback()
		if !f.Result.NoData {
			fill = b.Colors.ColorFor(f.Result.Party)
		}
		l.Styles[i] = fillStyle(fill)
	}
	return l
}

// 文档注释：单一政党分级设色
// 背景：定义域取已匹配要素得票率的最小/最大值；色阶按政党配置。
// 约束：
//   - 未匹配或被排除的要素仍然绘制，使用回退色
//   - 所有值相等时统一使用色阶最高端颜色，不视为错误
// 返回：色阶未定义时返回 color.DomainError。
func (b *Builder) Choropleth(label, party string, features []join.Feature, tooltip []TooltipField, title string) (Layer, Legend, error) {
	palette := b.Colors.PaletteFor(party)
	min, max := math.Inf(1), math.Inf(-1)
	for _, f := range features {
		if f.Status != join.Matched || f.Result.NoData {
			continue
		}
		min = math.Min(min, f.Result.Share)
		max = math.Max(max, f.Result.Share)
	}
	legend := Legend{
		Caption: fmt.Sprintf("Oppslutning (%%) for %s i %s", party, title),
		Stops:   b.Colors.Stops(palette),
	}
	if len(legend.Stops) == 0 {
		return Layer{}, Legend{}, &color.DomainError{Palette: palette, Reason: "unknown palette"}
	}
	hasDomain := !math.IsInf(min, 1)
	if hasDomain {
		legend.Min, legend.Max = min, max
	}

	l := Layer{Label: label, Features: features, Tooltip: tooltip, Styles: make([]Style, len(features)), Highlight: DefaultHighlight}
	for i, f := range features {
		fill := b.Colors.Fallback()
		if hasDomain && f.Status == join.Matched && !f.Result.NoData {
			if max == min {
				fill, _ = b.Colors.TopColor(palette)
			} else {
				c, err := b.Colors.ColorForContinuous(f.Result.Share, min, max, palette)
				if err != nil {
					return Layer{}, Legend{}, err
				}
				fill = c
			}
		}
		l.Styles[i] = fillStyle(fill)
	}
	return l, legend, nil
}

// CategoryLegend：类别图例（标题 Partier）
func (b *Builder) CategoryLegend() Legend {
	return Legend{Title: "Partier", Entries: b.Colors.Legend()}
}
