// 包 region：行政区编码（fylke → kommune → stemmekrets）的值类型与补零表示
package region

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// 编码宽度：县为 2 位，市与投票区为 4 位
const (
	CountyWidth       = 2
	MunicipalityWidth = 4
	PrecinctWidth     = 4
)

// 文档注释：全区哨兵
// 背景：部分市不拆分投票区，结果以整个市为单位上报；源数据中投票区编号为 0000，名称为 "Hele kommunen"。
// 约束：同一市内全区记录与分区记录不会并存（由 results 包校验）。
const (
	WholeArea     Code = "0000"
	WholeAreaName      = "Hele kommunen"
)

// 文档注释：行政区编码
// 背景：编码数值上是整数，但前导零有语义（0301 与 301 在文件名与属性中都以补零形式出现）；
// 因此内部统一保存补零后的字符串，比较时只做字符串相等，绝不按整数比较。
// 约束：空字符串表示"无编码"（例如县级/市级记录没有投票区）。
type Code string

// Pad：按宽度补零
func Pad(n, width int) Code {
	return Code(fmt.Sprintf("%0*d", width, n))
}

// ParseCode：解析任意来源的编码文本并补零到指定宽度
// 约束：仅接受非负整数文本（允许 "101.0" 这种表格导出的浮点写法）；空串返回空编码与错误。
func ParseCode(s string, width int) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty region code")
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if strings.Trim(s[i+1:], "0") != "" {
			return "", fmt.Errorf("region code %q is not an integer", s)
		}
		s = s[:i]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return "", fmt.Errorf("region code %q is not a non-negative integer", s)
	}
	return Pad(n, width), nil
}

// CodeFromAny：解析 GeoJSON 属性中的编码（JSON 数字或字符串）
func CodeFromAny(v any, width int) (Code, error) {
	switch x := v.(type) {
	case string:
		return ParseCode(x, width)
	case float64:
		if x < 0 || x != math.Trunc(x) {
			return "", fmt.Errorf("region code %v is not a non-negative integer", x)
		}
		return Pad(int(x), width), nil
	case int:
		if x < 0 {
			return "", fmt.Errorf("region code %d is negative", x)
		}
		return Pad(x, width), nil
	case int64:
		if x < 0 {
			return "", fmt.Errorf("region code %d is negative", x)
		}
		return Pad(int(x), width), nil
	case nil:
		return "", fmt.Errorf("missing region code")
	default:
		return "", fmt.Errorf("unsupported region code type %T", v)
	}
}

// Int：编码的整数值；空编码或非法文本返回 -1
func (c Code) Int() int {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return -1
	}
	return n
}

// Normalize：重新补零到目标宽度（例如来自不同宽度源的编码）
func (c Code) Normalize(width int) Code {
	if c == "" {
		return c
	}
	n := c.Int()
	if n < 0 {
		return c
	}
	return Pad(n, width)
}

func (c Code) String() string { return string(c) }

// IsWholeArea：投票区编码/名称是否表示整个市；空编码表示没有投票区层级，不算全区
func IsWholeArea(precinct Code, precinctName string) bool {
	if strings.TrimSpace(precinctName) == WholeAreaName {
		return true
	}
	return precinct != "" && precinct.Normalize(PrecinctWidth) == WholeArea
}
