// 包 ingest：从上游 URL 拉取结果文件并导入数据库，作为离线数据通道
package ingest

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"

	"valgkart/internal/logger"
	"valgkart/internal/results"
	"valgkart/internal/source"
	"valgkart/internal/store"
)

// formatOf：由 Content-Type 或 URL 路径推断格式（".json" / ".csv"）
func formatOf(contentType, rawURL string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch {
		case mt == "application/json" || strings.HasSuffix(mt, "+json"):
			return ".json"
		case mt == "text/csv":
			return ".csv"
		}
	}
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if strings.EqualFold(path.Ext(p), ".json") {
		return ".json"
	}
	return ".csv"
}

// Fetch：拉取并校验一份结果文件
// 异常：非 200 状态、解析失败直接返回，不做重试（交由调度层处理）
func Fetch(ctx context.Context, client *http.Client, srcURL string) (*results.Table, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", srcURL, resp.StatusCode)
	}
	tbl, err := source.ReadResults(resp.Body, formatOf(resp.Header.Get("content-type"), srcURL))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", srcURL, err)
	}
	return tbl, nil
}

// FetchAndImport：拉取上游并整体替换一次选举的数据
// 背景：先完整解析再写库，半截文件不会覆盖已有数据。
func FetchAndImport(ctx context.Context, client *http.Client, st *store.Store, election, srcURL string) (int, error) {
	logger.L().Info("ingest_start", "src", srcURL, "election", election)
	tbl, err := Fetch(ctx, client, srcURL)
	if err != nil {
		return 0, err
	}
	n, err := st.ImportRecords(ctx, election, tbl.Records())
	if err != nil {
		return 0, err
	}
	logger.L().Info("ingest_done", "count", n, "election", election)
	return n, nil
}

// EnsureInitialized：库中没有该选举时执行一次初始化导入
func EnsureInitialized(ctx context.Context, client *http.Client, st *store.Store, election, srcURL string) error {
	have, err := st.Elections(ctx)
	if err != nil {
		return err
	}
	for _, e := range have {
		if e == election {
			return nil
		}
	}
	_, err = FetchAndImport(ctx, client, st, election, srcURL)
	return err
}
