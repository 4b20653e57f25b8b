package watermark

import (
	"context"
	"fmt"
	"sync"
)

// Store 保存每用户的增量抓取水位线。
//
// 水位线是该用户已写入记录中最大的 Gmail internalDate
// （Unix 毫秒）；0 表示尚无水位线。水位线读写失败只应
// 使该用户退化为全量抓取，绝不中断运行——由调用方兜底。
type Store interface {
	Get(ctx context.Context, userEmail string) (int64, error)
	Set(ctx context.Context, userEmail string, internalDate int64) error
}

// AfterQuery 在基础查询上追加水位线过滤条件。
//
// Gmail 的 after: 按秒解释，水位线为毫秒，这里向下取整到秒。
// 由于 after: 是闭区间之后，水位线所在秒内的旧邮件可能被
// 重复拉取，依赖 Sink 的 insert id 去重兜底。
func AfterQuery(base string, internalDate int64) string {
	if internalDate <= 0 {
		return base
	}
	clause := fmt.Sprintf("after:%d", internalDate/1000)
	if base == "" {
		return clause
	}
	return base + " " + clause
}

// MemoryStore 进程内水位线存储，用于未配置 Redis 的场景和测试。
type MemoryStore struct {
	mu    sync.RWMutex
	marks map[string]int64
}

// NewMemoryStore 创建内存水位线存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{marks: make(map[string]int64)}
}

// Get 返回用户的水位线，没有时返回 0。
func (s *MemoryStore) Get(_ context.Context, userEmail string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marks[userEmail], nil
}

// Set 推进用户的水位线（只前进，不后退）。
func (s *MemoryStore) Set(_ context.Context, userEmail string, internalDate int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if internalDate > s.marks[userEmail] {
		s.marks[userEmail] = internalDate
	}
	return nil
}
