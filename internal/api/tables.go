package api

import (
	"context"
	"sync"

	"valgkart/internal/logger"
	"valgkart/internal/results"
	"valgkart/internal/store"
)

// TableSource：结果表来源（文件一次性加载或数据库）
type TableSource interface {
	Table(ctx context.Context) (*results.Table, error)
}

// StaticTable：启动时已加载的结果表
type StaticTable struct{ T *results.Table }

func (s StaticTable) Table(context.Context) (*results.Table, error) { return s.T, nil }

// 文档注释：数据库结果表
// 背景：首次请求时从 PostgreSQL 读取并缓存；读取失败不缓存，下次请求重试。
// 约束：Reset 后重新读取（导入新数据后调用）。
type StoreTable struct {
	Store    *store.Store
	Election string

	mu sync.Mutex
	t  *results.Table
}

func (s *StoreTable) Table(ctx context.Context) (*results.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t != nil {
		return s.t, nil
	}
	t, err := s.Store.LoadResults(ctx, s.Election)
	if err != nil {
		logger.L().Warn("db_results_load_error", "election", s.Election, "err", err)
		return nil, err
	}
	s.t = t
	return t, nil
}

func (s *StoreTable) Reset() {
	s.mu.Lock()
	s.t = nil
	s.mu.Unlock()
}
