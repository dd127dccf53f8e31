package results

import (
	"fmt"

	"valgkart/internal/region"
)

// 文档注释：结果表
// 背景：按输入顺序保存记录，并提供按县/市/投票区分组的访问器；所有派生操作返回新表，不修改原表。
// 约束：构造时完成校验（得票率范围与全区不变式），之后只读，可在多个协程间共享。
type Table struct {
	records []Record
}

// New：校验并构造结果表
// 异常：得票率越界、同一市-政党存在多条全区记录、或全区记录与分区记录并存时返回 *SchemaError。
func New(records []Record) (*Table, error) {
	type muniParty struct {
		muni  region.RegionCode
		party string
	}
	whole := make(map[muniParty]int)
	wholeMuni := make(map[region.RegionCode]bool)
	splitMuni := make(map[region.RegionCode]bool)
	for i, r := range records {
		if r.Share < 0 || r.Share > 100 || r.Share != r.Share {
			return nil, &SchemaError{Row: i + 1, Field: ColShare, Reason: fmt.Sprintf("vote share %v outside [0,100]", r.Share)}
		}
		if r.Party == "" {
			return nil, &SchemaError{Row: i + 1, Field: ColParty, Reason: "empty party name"}
		}
		if r.Region.Municipality == "" {
			if r.Region.Precinct != "" {
				return nil, &SchemaError{Row: i + 1, Field: ColMunicipality, Reason: "precinct without municipality"}
			}
			continue
		}
		m := r.Region.Truncate(region.LevelMunicipality)
		switch {
		case r.Region.WholeArea():
			k := muniParty{muni: m, party: r.Party}
			whole[k]++
			if whole[k] > 1 {
				return nil, &SchemaError{Row: i + 1, Field: ColPrecinct, Reason: fmt.Sprintf("duplicate whole-area record for municipality %s party %q", m.Municipality, r.Party)}
			}
			wholeMuni[m] = true
		case r.Region.Precinct != "":
			splitMuni[m] = true
		}
		if wholeMuni[m] && splitMuni[m] {
			return nil, &SchemaError{Row: i + 1, Field: ColPrecinct, Reason: fmt.Sprintf("municipality %s mixes whole-area and per-precinct records", m.Municipality)}
		}
	}
	out := make([]Record, len(records))
	copy(out, records)
	return &Table{records: out}, nil
}

// Len：记录条数
func (t *Table) Len() int { return len(t.records) }

// Records：返回记录副本（按输入顺序）
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Filter：返回满足条件的新表，原表不变
func (t *Table) Filter(pred func(Record) bool) *Table {
	var out []Record
	for _, r := range t.records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return &Table{records: out}
}

// 文档注释：分组结果
// 背景：Go 的 map 无序，因此额外保存首次出现的键顺序；组内保持输入顺序，决定并列时的取舍。
type Groups struct {
	level region.Level
	keys  []region.RegionCode
	m     map[region.RegionCode][]Record
}

// GroupBy：按层级分组
// 约束：键为截断到该层级的 RegionCode；按投票区分组时没有投票区编码的记录被跳过。
func (t *Table) GroupBy(level region.Level) *Groups {
	g := &Groups{level: level, m: make(map[region.RegionCode][]Record)}
	for _, r := range t.records {
		if r.Region.Key(level) == "" {
			continue
		}
		k := r.Region.Truncate(level)
		if _, ok := g.m[k]; !ok {
			g.keys = append(g.keys, k)
		}
		g.m[k] = append(g.m[k], r)
	}
	return g
}

func (g *Groups) Level() region.Level { return g.level }

// Keys：首次出现顺序的分组键
func (g *Groups) Keys() []region.RegionCode {
	out := make([]region.RegionCode, len(g.keys))
	copy(out, g.keys)
	return out
}

func (g *Groups) Len() int { return len(g.keys) }

// Get：分组内记录；不存在返回 nil
func (g *Groups) Get(key region.RegionCode) []Record { return g.m[key] }

// ByCode：按本层级编码查找分组（忽略上级编码）
func (g *Groups) ByCode(code region.Code) ([]Record, bool) {
	for _, k := range g.keys {
		if k.Key(g.level) == code {
			return g.m[k], true
		}
	}
	return nil, false
}

// Municipality：某市的全部记录
func (t *Table) Municipality(code region.Code) []Record {
	var out []Record
	for _, r := range t.records {
		if r.Region.Municipality == code {
			out = append(out, r)
		}
	}
	return out
}

// Municipalities：首次出现顺序的市编码
func (t *Table) Municipalities() []region.Code {
	return t.distinct(func(r Record) region.Code { return r.Region.Municipality })
}

// Counties：首次出现顺序的县编码
func (t *Table) Counties() []region.Code {
	return t.distinct(func(r Record) region.Code { return r.Region.County })
}

// MunicipalitiesIn：某县内的市编码
func (t *Table) MunicipalitiesIn(county region.Code) []region.Code {
	return t.Filter(func(r Record) bool { return r.Region.County == county }).Municipalities()
}

// Parties：首次出现顺序的政党名
func (t *Table) Parties() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.records {
		if !seen[r.Party] {
			seen[r.Party] = true
			out = append(out, r.Party)
		}
	}
	return out
}

// NameOf：某层级编码的显示名（取首条匹配记录）
func (t *Table) NameOf(level region.Level, code region.Code) string {
	for _, r := range t.records {
		if r.Region.Key(level) == code {
			return r.Name(level)
		}
	}
	return ""
}

func (t *Table) distinct(key func(Record) region.Code) []region.Code {
	seen := make(map[region.Code]bool)
	var out []region.Code
	for _, r := range t.records {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
