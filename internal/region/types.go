package region

// Level：编码层级
type Level int

const (
	LevelCounty Level = iota
	LevelMunicipality
	LevelPrecinct
)

func (l Level) String() string {
	switch l {
	case LevelCounty:
		return "county"
	case LevelMunicipality:
		return "municipality"
	case LevelPrecinct:
		return "precinct"
	}
	return "unknown"
}

// ParseLevel：从配置/查询参数解析层级，兼容挪威语名称
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "county", "fylke":
		return LevelCounty, true
	case "municipality", "kommune":
		return LevelMunicipality, true
	case "precinct", "krets", "valgkrets", "stemmekrets":
		return LevelPrecinct, true
	}
	return 0, false
}

// 文档注释：层级化行政区编码
// 背景：一条结果记录同时携带县、市、投票区三级编码；投票区可为空（市级或县级结果）。
// 约束：各字段均为补零后的 Code；结构体可比较，可直接作为 map 键使用。
type RegionCode struct {
	County       Code
	Municipality Code
	Precinct     Code
}

// Truncate：截断到指定层级，作为该层级的分组键
func (r RegionCode) Truncate(level Level) RegionCode {
	switch level {
	case LevelCounty:
		return RegionCode{County: r.County}
	case LevelMunicipality:
		return RegionCode{County: r.County, Municipality: r.Municipality}
	}
	return r
}

// Key：指定层级自身的编码
func (r RegionCode) Key(level Level) Code {
	switch level {
	case LevelCounty:
		return r.County
	case LevelMunicipality:
		return r.Municipality
	}
	return r.Precinct
}

// WholeArea：该编码是否为全区（市级单一单元）
func (r RegionCode) WholeArea() bool { return r.Precinct == WholeArea }

func (r RegionCode) String() string {
	s := string(r.County)
	if r.Municipality != "" {
		s += "/" + string(r.Municipality)
	}
	if r.Precinct != "" {
		s += "/" + string(r.Precinct)
	}
	return s
}
