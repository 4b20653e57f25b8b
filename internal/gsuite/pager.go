package gsuite

import "context"

// pageFunc 请求分页 API 的一页：给定游标和本页大小，
// 返回条目、下一页游标（空串表示没有下一页）。
type pageFunc[T any] func(ctx context.Context, pageToken string, pageSize int64) ([]T, string, error)

// drainPages 跟随游标拉取完整的逻辑序列。
//
// perPage 是单页条数上限；max > 0 时请求的页大小为
// min(perPage, 剩余预算)，累计达到 max 即停止——绝不会
// 请求超出预算的条目。max <= 0 表示不设上限，拉到游标耗尽。
//
// 游标是不透明值，原样透传给下一次请求；每页条目按响应
// 顺序追加，页与页之间不丢失条目。
func drainPages[T any](ctx context.Context, perPage int64, max int, fetch pageFunc[T]) ([]T, error) {
	var items []T
	pageToken := ""

	for {
		size := perPage
		if max > 0 {
			remaining := max - len(items)
			if remaining <= 0 {
				break
			}
			if int64(remaining) < size {
				size = int64(remaining)
			}
		}

		batch, next, err := fetch(ctx, pageToken, size)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)

		if max > 0 && len(items) >= max {
			items = items[:max]
			break
		}
		if next == "" {
			break
		}
		pageToken = next
	}

	return items, nil
}
