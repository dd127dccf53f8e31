// 包 join：把聚合结果按编码关联到边界要素，生成新的富化要素（不修改输入）
package join

import (
	"valgkart/internal/aggregate"
	"valgkart/internal/boundary"
	"valgkart/internal/logger"
	"valgkart/internal/metrics"
	"valgkart/internal/region"
	"valgkart/internal/results"
)

// 富化后写入的属性键（渲染端的提示框按这些键取值）
const (
	PropParty            = "partinavn"
	PropShare            = "oppslutning"
	PropMunicipalityName = "kommunenavn"
	PropPrecinctName     = "stemmekretsnavn"
	PropBoundaryName     = "valgkretsnavn"
	PropCode             = "krets"
	PropMissing          = "mangler"
)

// Status：要素关联状态
type Status int

const (
	Matched  Status = iota // 找到对应结果
	Missing                // 无对应结果，使用回退值并上报
	Excluded               // 有结果但被选择规则排除，不进入图层
)

func (s Status) String() string {
	switch s {
	case Matched:
		return "matched"
	case Missing:
		return "missing"
	case Excluded:
		return "excluded"
	}
	return "unknown"
}

// 文档注释：富化要素
// 背景：仓库中的边界要素只读，这里持有其引用并附带本次关联的结果与新属性表。
// 约束：Properties 为独立副本，可交给渲染端随意修改。
type Feature struct {
	Source     boundary.Feature
	Region     region.RegionCode
	Result     aggregate.Result
	Status     Status
	Uniform    bool
	Properties map[string]any
}

// Missing：是否为缺失（被上报）的要素
func (f Feature) Missing() bool { return f.Status == Missing }

// Outcome：一次关联的输出；Flagged 为缺失要素的编码（数据质量问题，不是错误）
type Outcome struct {
	Features []Feature
	Flagged  []region.RegionCode
	Uniform  bool
}

// Joiner：按选择规则取值的关联器
type Joiner struct {
	Rule aggregate.Rule
}

// New：规则为空时使用最大党
func New(rule aggregate.Rule) *Joiner {
	if rule == nil {
		rule = aggregate.WinnerRule{}
	}
	return &Joiner{Rule: rule}
}

// municipalityWide：全区记录，或未细分到投票区的市级记录
func municipalityWide(c region.Code) bool {
	return c == "" || c == region.WholeArea
}

// 文档注释：投票区关联
// 背景：muni 为市级编码（County+Municipality）；records 为该市全部结果记录。
// 流程：
//  1. 仅有一个投票区分组且为全区时，同一结果填充全部要素（uniform fill）
//  2. 否则按要素自身编码（4 位补零后）精确匹配；未匹配的要素回退到全区结果或"无数据"，并上报
// 约束：编码只做字符串比较；输入要素与记录均不被修改
func (j *Joiner) Precinct(muni region.RegionCode, features []boundary.Feature, records []results.Record) Outcome {
	muni = muni.Truncate(region.LevelMunicipality)
	order := make([]region.Code, 0)
	groups := make(map[region.Code][]results.Record)
	for _, r := range records {
		k := r.Region.Precinct.Normalize(region.PrecinctWidth)
		if municipalityWide(r.Region.Precinct) {
			k = region.WholeArea
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	muniName := municipalityName(records)

	if len(order) == 1 && order[0] == region.WholeArea {
		return j.fill(muni, features, groups[region.WholeArea], muniName)
	}

	fallback := aggregate.NoData(muni)
	if whole, ok := groups[region.WholeArea]; ok {
		if r, ok := j.Rule.Select(whole); ok {
			fallback = r
		}
	}

	out := Outcome{Features: make([]Feature, 0, len(features))}
	for _, f := range features {
		code := f.Code.Normalize(region.PrecinctWidth)
		rc := region.RegionCode{County: muni.County, Municipality: muni.Municipality, Precinct: code}
		var ef Feature
		if recs, ok := groups[code]; ok && code != "" && code != region.WholeArea {
			if r, ok := j.Rule.Select(recs); ok {
				ef = enrich(f, rc, r, Matched, false, muniName)
			} else {
				ef = enrich(f, rc, aggregate.Result{Region: rc}, Excluded, false, muniName)
			}
		} else {
			fb := fallback
			fb.Region = rc
			ef = enrich(f, rc, fb, Missing, false, muniName)
			out.Flagged = append(out.Flagged, rc)
			logger.L().Debug("join_flagged", "municipality", muni.Municipality, "precinct", code, "fallback", fb.Party)
		}
		metrics.JoinedFeaturesTotal.WithLabelValues(ef.Status.String()).Inc()
		out.Features = append(out.Features, ef)
	}
	return out
}

// 文档注释：整区填充
// 背景：市/县粒度下一个边界要素代表整个市；只使用市级（全区或无投票区编码）记录取值。
// 约束：没有市级记录时全部要素记为缺失并上报。
func (j *Joiner) Uniform(rc region.RegionCode, features []boundary.Feature, records []results.Record) Outcome {
	rc = rc.Truncate(region.LevelMunicipality)
	wide := make([]results.Record, 0, len(records))
	for _, r := range records {
		if municipalityWide(r.Region.Precinct) {
			wide = append(wide, r)
		}
	}
	if len(wide) == 0 {
		out := Outcome{Features: make([]Feature, 0, len(features))}
		name := municipalityName(records)
		for _, f := range features {
			out.Features = append(out.Features, enrich(f, rc, aggregate.NoData(rc), Missing, false, name))
			metrics.JoinedFeaturesTotal.WithLabelValues(Missing.String()).Inc()
		}
		if len(features) > 0 {
			out.Flagged = append(out.Flagged, rc)
			logger.L().Debug("join_flagged", "municipality", rc.Municipality, "reason", "no_municipality_records")
		}
		return out
	}
	return j.fill(rc, features, wide, municipalityName(records))
}

func (j *Joiner) fill(rc region.RegionCode, features []boundary.Feature, records []results.Record, muniName string) Outcome {
	r, ok := j.Rule.Select(records)
	status := Matched
	if !ok {
		status = Excluded
		r = aggregate.Result{Region: rc}
	}
	out := Outcome{Features: make([]Feature, 0, len(features)), Uniform: true}
	for _, f := range features {
		out.Features = append(out.Features, enrich(f, rc, r, status, true, muniName))
		metrics.JoinedFeaturesTotal.WithLabelValues(status.String()).Inc()
	}
	return out
}

func municipalityName(records []results.Record) string {
	for _, r := range records {
		if r.Names.Municipality != "" {
			return r.Names.Municipality
		}
	}
	return ""
}

func enrich(f boundary.Feature, rc region.RegionCode, r aggregate.Result, st Status, uniform bool, muniName string) Feature {
	props := f.CloneProperties()
	if muniName != "" {
		props[PropMunicipalityName] = muniName
	}
	if rc.Precinct != "" {
		props[PropCode] = string(rc.Precinct)
	}
	if st != Excluded {
		props[PropParty] = r.Party
		props[PropShare] = r.FormatShare()
	}
	if st == Matched && !uniform && r.Names.Precinct != "" {
		props[PropPrecinctName] = r.Names.Precinct
		if _, ok := props[PropBoundaryName]; !ok {
			props[PropBoundaryName] = r.Names.Precinct
		}
	}
	props[PropMissing] = st == Missing
	return Feature{Source: f, Region: rc, Result: r, Status: st, Uniform: uniform, Properties: props}
}
