package api

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"valgkart/internal/logger"
	"valgkart/internal/region"
)

const (
	bloomBits   = 1 << 16
	bloomHashes = 4
)

// 文档注释：计算布隆过滤器位置
// 参数：data 为参与哈希的字节序列，m 为位图大小，k 为哈希次数。
// 背景：FNV64a 结合索引扰动生成 k 个位置，用于 GetBit/SetBit。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(uint32(h.Sum64() % uint64(m)))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 返回：true 表示首次见到（已写入位图）；false 表示已存在。
// 异常：Redis 交互错误时返回 error；rc 为 nil 时视为首次见到，不阻断主流程。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	seen := true
	for _, p := range positions {
		b, err := rc.GetBit(ctx, key, p).Result()
		if err != nil {
			return true, err
		}
		if b == 0 {
			seen = false
		}
	}
	if seen {
		return false, nil
	}
	for _, p := range positions {
		_, _ = rc.SetBit(ctx, key, p, 1).Result()
	}
	_ = rc.Expire(ctx, key, ttl).Err()
	return true, nil
}

// 文档注释：过滤当天已记录过的缺失要素
// 背景：_valg_mangler.antall 计的是出现过的天数；同一编码同一天只写一次库。
// 约束：误判只会漏记一次，不会多记；Redis 不可用时全部放行。
func freshFlagged(ctx context.Context, rc *redis.Client, election string, codes []region.RegionCode, now time.Time) []region.RegionCode {
	if rc == nil {
		return codes
	}
	key := "mangler:" + election + ":" + now.Format("20060102")
	out := make([]region.RegionCode, 0, len(codes))
	for _, c := range codes {
		first, err := bloomCheckAndSet(ctx, rc, key, bloomPositions([]byte(c.String()), bloomBits, bloomHashes), 36*time.Hour)
		if err != nil {
			logger.L().Debug("flagged_bloom_error", "err", err)
		}
		if first {
			out = append(out, c)
		}
	}
	return out
}
