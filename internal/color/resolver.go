package color

import (
	"fmt"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"valgkart/internal/logger"
	"valgkart/internal/metrics"
)

// DomainError：色阶定义域退化（min>=max）或色阶名未知
type DomainError struct {
	Min, Max float64
	Palette  string
	Reason   string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("color domain error: %s (palette=%q min=%g max=%g)", e.Reason, e.Palette, e.Min, e.Max)
}

// LegendEntry：图例条目
type LegendEntry struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// 文档注释：颜色解析器
// 背景：对未知类别返回中性回退色并记录一次日志与计数，不阻断渲染。
// 约束：构造后只读；seen 仅用于日志去重，可并发访问。
type Resolver struct {
	table    Table
	colors   map[string]string
	palettes map[string][]colorful.Color
	seen     sync.Map
}

// New：校验颜色表并预解析色阶
func New(t Table) (*Resolver, error) {
	if t.Fallback == "" {
		t.Fallback = FallbackColor
	}
	if t.DefaultPalette == "" {
		t.DefaultPalette = "viridis"
	}
	if t.OtherLabel == "" {
		t.OtherLabel = OtherLabel
	}
	if _, err := colorful.Hex(t.Fallback); err != nil {
		return nil, fmt.Errorf("fallback color %q: %w", t.Fallback, err)
	}
	r := &Resolver{
		table:    t,
		colors:   make(map[string]string, len(t.Parties)),
		palettes: make(map[string][]colorful.Color, len(t.Definitions)),
	}
	for _, pc := range t.Parties {
		if _, err := colorful.Hex(pc.Color); err != nil {
			return nil, fmt.Errorf("color for %q: %w", pc.Party, err)
		}
		r.colors[pc.Party] = pc.Color
	}
	for name, stops := range t.Definitions {
		if len(stops) < 2 {
			return nil, fmt.Errorf("palette %q needs at least two colors", name)
		}
		cs := make([]colorful.Color, 0, len(stops))
		for _, s := range stops {
			c, err := colorful.Hex(s)
			if err != nil {
				return nil, fmt.Errorf("palette %q: %w", name, err)
			}
			cs = append(cs, c)
		}
		r.palettes[name] = cs
	}
	for party, p := range t.Palettes {
		if _, ok := r.palettes[p]; !ok {
			return nil, fmt.Errorf("palette %q for %q is not defined", p, party)
		}
	}
	if _, ok := r.palettes[t.DefaultPalette]; !ok {
		return nil, fmt.Errorf("default palette %q is not defined", t.DefaultPalette)
	}
	return r, nil
}

// ColorFor：类别色；未知类别返回回退色（全函数，不会失败）
func (r *Resolver) ColorFor(category string) string {
	if c, ok := r.colors[category]; ok {
		return c
	}
	if _, loaded := r.seen.LoadOrStore(category, struct{}{}); !loaded {
		logger.L().Warn("color_fallback", "category", category, "color", r.table.Fallback)
	}
	metrics.ColorFallbackTotal.Inc()
	return r.table.Fallback
}

// Known：类别是否在颜色表中
func (r *Resolver) Known(category string) bool {
	_, ok := r.colors[category]
	return ok
}

func (r *Resolver) Fallback() string   { return r.table.Fallback }
func (r *Resolver) OtherLabel() string { return r.table.OtherLabel }

// PaletteFor：政党色阶名，未配置时为默认色阶
func (r *Resolver) PaletteFor(party string) string {
	if p, ok := r.table.Palettes[party]; ok {
		return p
	}
	return r.table.DefaultPalette
}

// 文档注释：连续色
// 背景：在色阶各色标之间做 RGB 线性插值；value 超出定义域时截断到端点。
// 返回：min>=max 或色阶未知时返回 DomainError。
func (r *Resolver) ColorForContinuous(value, min, max float64, palette string) (string, error) {
	stops, ok := r.palettes[palette]
	if !ok {
		return "", &DomainError{Min: min, Max: max, Palette: palette, Reason: "unknown palette"}
	}
	if !(max > min) {
		return "", &DomainError{Min: min, Max: max, Palette: palette, Reason: "degenerate domain"}
	}
	t := (value - min) / (max - min)
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(stops)-1)
	i := int(math.Floor(pos))
	if i >= len(stops)-1 {
		return stops[len(stops)-1].Hex(), nil
	}
	return stops[i].BlendRgb(stops[i+1], pos-float64(i)).Clamped().Hex(), nil
}

// TopColor：色阶最高端颜色（定义域退化时使用）
func (r *Resolver) TopColor(palette string) (string, bool) {
	stops, ok := r.palettes[palette]
	if !ok {
		return "", false
	}
	return stops[len(stops)-1].Hex(), true
}

// Stops：色阶色标（供连续图例输出）
func (r *Resolver) Stops(palette string) []string {
	stops := r.palettes[palette]
	out := make([]string, 0, len(stops))
	for _, c := range stops {
		out = append(out, c.Hex())
	}
	return out
}

// Legend：按颜色表顺序输出图例
func (r *Resolver) Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(r.table.Parties))
	for _, pc := range r.table.Parties {
		out = append(out, LegendEntry{Label: pc.Party, Color: pc.Color})
	}
	return out
}
