package sink

import (
	"context"

	"gmailscraper/backend/internal/domain"
)

// Writer 是追加式结构化 Sink 的写入能力。
//
// EnsureSchema 幂等地创建目标表；Write 批量追加记录并返回
// 被接受的行数。Sink 拒绝写入（部分或全部）不是错误：
// Write 返回 0 并由实现方记录拒绝详情，调用方按
// "本批次没有贡献"处理，而不是终止运行。
type Writer interface {
	EnsureSchema(ctx context.Context) error
	Write(ctx context.Context, records []domain.EmailRecord) (int, error)
}
