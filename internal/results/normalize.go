package results

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"valgkart/internal/region"
)

// 文档注释：从表格行归一化
// 背景：外部 CSV/JSON 解析器交付 "列名 → 文本" 的行；此处统一完成编码补零、全区识别与数值解析。
// 约束：Fylkenummer/Kommunenummer/Partinavn/Oppslutning prosentvis 为必需列；Stemmekretsnummer 可缺省（市级结果）；
// 得票率允许十进制逗号。任何一行不合规都使整张表失败。
func FromRows(rows []map[string]string) (*Table, error) {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		rec, err := recordFromRow(i+1, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return New(records)
}

func recordFromRow(n int, row map[string]string) (Record, error) {
	var rec Record
	get := func(col string) (string, error) {
		v, ok := row[col]
		if !ok {
			return "", &SchemaError{Row: n, Field: col, Reason: "missing column"}
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return "", &SchemaError{Row: n, Field: col, Reason: "empty value"}
		}
		return v, nil
	}
	county, err := get(ColCounty)
	if err != nil {
		return rec, err
	}
	if rec.Region.County, err = region.ParseCode(county, region.CountyWidth); err != nil {
		return rec, &SchemaError{Row: n, Field: ColCounty, Reason: err.Error()}
	}
	muni, err := get(ColMunicipality)
	if err != nil {
		return rec, err
	}
	if rec.Region.Municipality, err = region.ParseCode(muni, region.MunicipalityWidth); err != nil {
		return rec, &SchemaError{Row: n, Field: ColMunicipality, Reason: err.Error()}
	}
	if rec.Party, err = get(ColParty); err != nil {
		return rec, err
	}
	share, err := get(ColShare)
	if err != nil {
		return rec, err
	}
	if rec.Share, err = ParseShare(share); err != nil {
		return rec, &SchemaError{Row: n, Field: ColShare, Reason: err.Error()}
	}
	if rec.Share < 0 || rec.Share > 100 {
		return rec, &SchemaError{Row: n, Field: ColShare, Reason: fmt.Sprintf("vote share %v outside [0,100]", rec.Share)}
	}
	rec.Names = DisplayNames{
		County:       strings.TrimSpace(row[ColCountyName]),
		Municipality: strings.TrimSpace(row[ColMunicipalityName]),
		Precinct:     strings.TrimSpace(row[ColPrecinctName]),
	}
	prec := strings.TrimSpace(row[ColPrecinct])
	switch {
	case region.IsWholeArea(region.Code(prec), rec.Names.Precinct):
		rec.Region.Precinct = region.WholeArea
	case prec != "":
		if rec.Region.Precinct, err = region.ParseCode(prec, region.PrecinctWidth); err != nil {
			return rec, &SchemaError{Row: n, Field: ColPrecinct, Reason: err.Error()}
		}
	}
	return rec, nil
}

// ParseShare：解析得票率文本（"55.3" 或 "55,3"）
func ParseShare(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("vote share %q is not a number", s)
	}
	return f, nil
}

// 文档注释：单一政党结果文档
// 背景：另一种导出格式，每个文件只包含一个政党，按市给出投票区编号、名称与得票率的平行数组。
type PartyDocument struct {
	Party          string                       `json:"navn"`
	Municipalities map[string]PartyMunicipality `json:"kommuner"`
}

type PartyMunicipality struct {
	Name          string    `json:"kommune_navn"`
	Precincts     []any     `json:"krets"`
	PrecinctNames []string  `json:"krets_navn"`
	Shares        []float64 `json:"oppslutning_prosentvis"`
}

// FromPartyDocument：把单一政党文档展开为结果表
// 约束：平行数组长度必须一致；县编码取市编码前两位；市按编码升序展开以保证结果稳定。
func FromPartyDocument(doc PartyDocument) (*Table, error) {
	if doc.Party == "" {
		return nil, &SchemaError{Field: "navn", Reason: "missing party name"}
	}
	keys := make([]string, 0, len(doc.Municipalities))
	for k := range doc.Municipalities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var records []Record
	for _, k := range keys {
		m := doc.Municipalities[k]
		muni, err := region.ParseCode(k, region.MunicipalityWidth)
		if err != nil {
			return nil, &SchemaError{Field: "kommuner", Reason: err.Error()}
		}
		if len(m.Precincts) != len(m.Shares) || (len(m.PrecinctNames) != 0 && len(m.PrecinctNames) != len(m.Shares)) {
			return nil, &SchemaError{Field: "krets", Reason: fmt.Sprintf("municipality %s: parallel arrays differ in length", muni)}
		}
		for i, raw := range m.Precincts {
			rec := Record{
				Region: region.RegionCode{County: muni[:2], Municipality: muni},
				Party:  doc.Party,
				Share:  m.Shares[i],
				Names:  DisplayNames{Municipality: m.Name},
			}
			if len(m.PrecinctNames) > 0 {
				rec.Names.Precinct = m.PrecinctNames[i]
			}
			prec, err := region.CodeFromAny(raw, region.PrecinctWidth)
			if err != nil {
				return nil, &SchemaError{Field: "krets", Reason: fmt.Sprintf("municipality %s: %v", muni, err)}
			}
			if region.IsWholeArea(prec, rec.Names.Precinct) {
				prec = region.WholeArea
			}
			rec.Region.Precinct = prec
			records = append(records, rec)
		}
	}
	return New(records)
}
