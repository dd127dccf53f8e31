// 包 source：结果文件读取（CSV / JSON），把原始字节交给 results 包归一化
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"valgkart/internal/logger"
	"valgkart/internal/results"
)

// 文档注释：读取 CSV 结果表
// 背景：valgresultat.no 的导出使用分号分隔，其他来源多为逗号；按表头自动判断分隔符，并去掉 UTF-8 BOM。
// 约束：首行为表头；每行转换为 列名 → 文本，列数不足的行按缺列处理，由 results 包报告结构错误。
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, err
	}
	comma := sniffDelimiter(bytes.TrimPrefix(head, utf8BOM))
	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+1, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var utf8BOM = []byte("\xef\xbb\xbf")

func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// 文档注释：读取 JSON 结果
// 背景：支持两种形态：单一政党文档（含 navn/kommuner）与记录数组（[{列名: 值}]）。
// 约束：数组元素中的数字按最短十进制形式转成文本，编码的前导零由 results 包补回。
func ReadJSON(r io.Reader) (*results.Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var raw []map[string]any
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("decode result records: %w", err)
		}
		rows := make([]map[string]string, 0, len(raw))
		for _, m := range raw {
			row := make(map[string]string, len(m))
			for k, v := range m {
				row[k] = stringify(v)
			}
			rows = append(rows, row)
		}
		return results.FromRows(rows)
	}
	var doc results.PartyDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode party document: %w", err)
	}
	return results.FromPartyDocument(doc)
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ReadResults：按格式（".json" 或其他按 CSV）读取结果表；文件与 HTTP 拉取共用
func ReadResults(r io.Reader, ext string) (*results.Table, error) {
	if strings.EqualFold(ext, ".json") {
		return ReadJSON(r)
	}
	rows, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return results.FromRows(rows)
}

// LoadResults：按扩展名读取结果文件
func LoadResults(path string) (*results.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	logger.L().Debug("results_load_begin", "path", path)
	tbl, err := ReadResults(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load results %s: %w", path, err)
	}
	logger.L().Info("results_load_ok", "path", path, "records", tbl.Len())
	return tbl, nil
}
