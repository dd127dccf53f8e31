// 包 mapbuild：参数化的图层构建流水线（粒度 × 选择规则 × 分层方式）
package mapbuild

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"valgkart/internal/aggregate"
	"valgkart/internal/boundary"
	"valgkart/internal/geo"
	"valgkart/internal/join"
	"valgkart/internal/layer"
	"valgkart/internal/logger"
	"valgkart/internal/metrics"
	"valgkart/internal/region"
	"valgkart/internal/results"
)

// Layering：分层方式
type Layering int

const (
	ByRegion   Layering = iota // 每个市一层
	ByCategory                 // 每个政党一层
	Choropleth                 // 单一政党分级设色
)

func (l Layering) String() string {
	switch l {
	case ByCategory:
		return "category"
	case Choropleth:
		return "choropleth"
	}
	return "region"
}

// ParseLayering：region | category | choropleth；空串为 region
func ParseLayering(s string) (Layering, error) {
	switch s {
	case "", "region":
		return ByRegion, nil
	case "category", "party":
		return ByCategory, nil
	case "choropleth":
		return Choropleth, nil
	}
	return ByRegion, fmt.Errorf("unknown layering %q", s)
}

// Config：一次构建的参数
type Config struct {
	Granularity region.Level
	Rule        aggregate.Rule
	Layering    Layering
	Party       string // 分级设色的政党；Rule 为 PartyRule 时可省略
	Zoom        int
}

// Deps：跨请求共享的依赖
type Deps struct {
	Precincts      *boundary.Repository
	Municipalities *boundary.Repository
	Layers         *layer.Builder
}

// Builder：按 Config 驱动 仓库 → 关联 → 取景 → 分层
type Builder struct {
	deps Deps
	cfg  Config
}

// New：校验配置；分级设色强制使用指定政党的取值规则
func New(deps Deps, cfg Config) (*Builder, error) {
	if deps.Layers == nil {
		return nil, errors.New("mapbuild: layer builder is required")
	}
	if cfg.Rule == nil {
		cfg.Rule = aggregate.WinnerRule{}
	}
	if cfg.Layering == Choropleth {
		if pr, ok := cfg.Rule.(aggregate.PartyRule); ok && cfg.Party == "" {
			cfg.Party = pr.Party
		}
		if cfg.Party == "" {
			return nil, errors.New("mapbuild: choropleth layering requires a party")
		}
		cfg.Rule = aggregate.PartyRule{Party: cfg.Party}
	}
	switch cfg.Granularity {
	case region.LevelPrecinct:
		if deps.Precincts == nil {
			return nil, errors.New("mapbuild: precinct boundaries are not configured")
		}
	case region.LevelMunicipality, region.LevelCounty:
		if deps.Municipalities == nil {
			return nil, errors.New("mapbuild: municipality boundaries are not configured")
		}
	default:
		return nil, fmt.Errorf("mapbuild: unsupported granularity %v", cfg.Granularity)
	}
	return &Builder{deps: deps, cfg: cfg}, nil
}

// Config：生效的配置（已补默认值）
func (b *Builder) Config() Config { return b.cfg }

type group struct {
	label string
	feats []join.Feature
}

// 文档注释：构建图层集合
// 参数：targets 在投票区/市粒度下为市编码，在县粒度下为县编码。
// 流程：逐个目标加载边界并关联；汇总缺失编码；计算取景；按 Layering 分层。
// 返回：边界缺失、几何为空或色阶错误时中止并返回带编码的错误；缺失匹配只记入 Flagged。
func (b *Builder) Build(ctx context.Context, table *results.Table, targets []region.Code) (*layer.Set, error) {
	start := time.Now()
	gran := b.cfg.Granularity.String()
	set, err := b.build(ctx, table, targets)
	metrics.BuildDurationMs.WithLabelValues(gran).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.BuildsTotal.WithLabelValues(gran, "error").Inc()
		logger.L().Warn("build_failed", "granularity", gran, "targets", joinCodes(targets), "error", err)
		return nil, err
	}
	metrics.BuildsTotal.WithLabelValues(gran, "ok").Inc()
	logger.L().Info("build_ok", "granularity", gran, "rule", b.cfg.Rule.Name(), "layering", b.cfg.Layering.String(),
		"layers", len(set.Layers), "flagged", len(set.Flagged), "duration_ms", time.Since(start).Milliseconds())
	return set, nil
}

func (b *Builder) build(ctx context.Context, table *results.Table, targets []region.Code) (*layer.Set, error) {
	if table == nil {
		return nil, errors.New("mapbuild: result table is nil")
	}
	if len(targets) == 0 {
		return nil, errors.New("mapbuild: no targets")
	}
	joiner := join.New(b.cfg.Rule)
	var groups []group
	var flagged []region.RegionCode

	add := func(label string, out join.Outcome) {
		groups = append(groups, group{label: label, feats: out.Features})
		flagged = append(flagged, out.Flagged...)
	}

	for _, t := range targets {
		switch b.cfg.Granularity {
		case region.LevelPrecinct:
			muni := t.Normalize(region.MunicipalityWidth)
			feats, err := b.deps.Precincts.FeaturesFor(ctx, muni)
			if err != nil {
				return nil, fmt.Errorf("municipality %s: %w", muni, err)
			}
			records := table.Municipality(muni)
			add(municipalityLabel(table, muni), joiner.Precinct(municipalityCode(records, muni), feats, records))
		case region.LevelMunicipality:
			muni := t.Normalize(region.MunicipalityWidth)
			out, err := b.uniform(ctx, joiner, table, muni)
			if err != nil {
				return nil, err
			}
			add(municipalityLabel(table, muni), out)
		case region.LevelCounty:
			county := t.Normalize(region.CountyWidth)
			munis := table.MunicipalitiesIn(county)
			if len(munis) == 0 {
				return nil, fmt.Errorf("county %s: no municipalities in results", county)
			}
			for _, muni := range munis {
				out, err := b.uniform(ctx, joiner, table, muni)
				if err != nil {
					return nil, err
				}
				add(municipalityLabel(table, muni), out)
			}
		}
	}

	var all []join.Feature
	for _, g := range groups {
		all = append(all, g.feats...)
	}
	if len(flagged) > 0 {
		logger.L().Info("build_flagged", "count", len(flagged), "first", flagged[0].String())
	}

	set := &layer.Set{Flagged: flagged, Tiles: layer.DefaultTiles}
	lb := b.deps.Layers
	tooltip := layer.MunicipalityTooltip
	if b.cfg.Granularity == region.LevelPrecinct {
		tooltip = layer.PrecinctTooltip
	}
	switch b.cfg.Layering {
	case ByRegion:
		for _, g := range groups {
			if l, ok := lb.ByRegion(g.label, g.feats, tooltip); ok {
				set.Layers = append(set.Layers, l)
			}
		}
		set.Legend = lb.CategoryLegend()
	case ByCategory:
		set.Layers = lb.ByCategory(all, tooltip)
		set.Legend = lb.CategoryLegend()
	case Choropleth:
		if b.cfg.Granularity == region.LevelPrecinct {
			tooltip = layer.PartyTooltip
		}
		labels := make([]string, 0, len(groups))
		for _, g := range groups {
			labels = append(labels, g.label)
		}
		title := strings.Join(labels, ", ")
		l, legend, err := lb.Choropleth(title, b.cfg.Party, all, tooltip, title)
		if err != nil {
			return nil, err
		}
		if len(l.Features) > 0 {
			set.Layers = append(set.Layers, l)
		}
		set.Legend = legend
	}

	// 取景只看实际绘制的要素；什么都没绘制时按空几何处理
	frame, err := geo.Frame(rendered(set.Layers), b.cfg.Zoom)
	if err != nil {
		return nil, fmt.Errorf("targets %s: %w", joinCodes(targets), err)
	}
	set.Frame = frame
	return set, nil
}

func rendered(layers []layer.Layer) []boundary.Feature {
	var out []boundary.Feature
	for _, l := range layers {
		for _, f := range l.Features {
			out = append(out, f.Source)
		}
	}
	return out
}

func (b *Builder) uniform(ctx context.Context, joiner *join.Joiner, table *results.Table, muni region.Code) (join.Outcome, error) {
	feats, err := b.deps.Municipalities.FeaturesFor(ctx, muni)
	if err != nil {
		return join.Outcome{}, fmt.Errorf("municipality %s: %w", muni, err)
	}
	records := table.Municipality(muni)
	return joiner.Uniform(municipalityCode(records, muni), feats, records), nil
}

// municipalityCode：县编码取自记录；没有记录时取市编码前两位
func municipalityCode(records []results.Record, muni region.Code) region.RegionCode {
	if len(records) > 0 {
		return records[0].Region.Truncate(region.LevelMunicipality)
	}
	county := region.Code("")
	if len(muni) >= region.CountyWidth {
		county = muni[:region.CountyWidth]
	}
	return region.RegionCode{County: county, Municipality: muni}
}

func municipalityLabel(table *results.Table, muni region.Code) string {
	if n := table.NameOf(region.LevelMunicipality, muni); n != "" {
		return n
	}
	return string(muni)
}

func joinCodes(cs []region.Code) string {
	ss := make([]string, 0, len(cs))
	for _, c := range cs {
		ss = append(ss, string(c))
	}
	return strings.Join(ss, ",")
}
