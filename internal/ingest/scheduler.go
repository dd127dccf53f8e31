package ingest

import (
	"context"
	"os"
	"strconv"
	"time"

	"valgkart/internal/logger"
)

// nextDailyAt：计算 now 之后下一次指定整点的时间点
// 约束：基于时区 loc；当天整点已过则顺延到次日
func nextDailyAt(now time.Time, loc *time.Location, hour int) time.Time {
	n := now.In(loc)
	t := time.Date(n.Year(), n.Month(), n.Day(), hour, 0, 0, 0, loc)
	if !t.After(n) {
		t = time.Date(n.Year(), n.Month(), n.Day()+1, hour, 0, 0, 0, loc)
	}
	return t
}

// RefreshHour：INGEST_HOUR（0-23），缺省 4
func RefreshHour() int {
	if h := os.Getenv("INGEST_HOUR"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n >= 0 && n < 24 {
			return n
		}
	}
	return 4
}

// StartDailyOslo：在挪威时间（Europe/Oslo）每天指定整点运行 job
// 背景：计票期间上游结果持续更新；错误由日志记录，任务继续调度
// 约束：ctx 取消后停止；运行于后台协程
func StartDailyOslo(ctx context.Context, hour int, job func(context.Context) error) {
	l := logger.L()
	loc, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		loc = time.UTC
	}
	go func() {
		for {
			next := nextDailyAt(time.Now(), loc, hour)
			l.Info("ingest_scheduled", "next", next)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(next)):
			}
			if err := job(ctx); err != nil {
				l.Error("ingest_error", "err", err)
			}
		}
	}()
}
