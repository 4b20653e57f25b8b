package gsuite

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"gmailscraper/backend/internal/monitoring"
)

// MailboxClient 以邮箱所有者的委派身份抓取其邮件。
//
// 所有 Gmail API 调用共享同一个速率限制器，
// 避免大域扫描触发配额限制。
type MailboxClient struct {
	creds    *Credentials
	limiter  *rate.Limiter
	pageSize int64
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewMailboxClient 创建邮箱客户端。metrics 可为 nil。
//
// rps 是 Gmail API 的每秒调用上限，pageSize 是列表接口的单页条数上限。
func NewMailboxClient(creds *Credentials, rps float64, pageSize int64, metrics *monitoring.Metrics, log *zap.Logger) *MailboxClient {
	if rps <= 0 {
		rps = 10
	}
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}
	return &MailboxClient{
		creds:    creds,
		limiter:  rate.NewLimiter(rate.Limit(rps), int(rps)),
		pageSize: pageSize,
		metrics:  metrics,
		log:      log,
	}
}

// FetchMessages 列出并逐条拉取某用户的完整邮件。
//
// 列表响应只含消息引用（ID），必须对每个引用再发一次 get
// 才能拿到完整载荷。翻页在游标耗尽或累计达到 max 时停止，
// 以先到者为准。任何请求错误都直接返回，由调用方记入该
// 用户的错误——不会中断整体运行。
func (c *MailboxClient) FetchMessages(ctx context.Context, userEmail, query string, max int) ([]*gmail.Message, error) {
	svc, err := gmail.NewService(ctx,
		option.WithTokenSource(c.creds.Delegate(ctx, userEmail)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	refs, err := drainPages(ctx, c.pageSize, max,
		func(ctx context.Context, pageToken string, pageSize int64) ([]*gmail.Message, string, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, "", err
			}

			call := svc.Users.Messages.List("me").MaxResults(pageSize)
			if query != "" {
				call = call.Q(query)
			}
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			c.metrics.RecordAPICall("gmail")
			resp, err := call.Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			return resp.Messages, resp.NextPageToken, nil
		})
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", userEmail, err)
	}

	messages := make([]*gmail.Message, 0, len(refs))
	for _, ref := range refs {
		if ref == nil || ref.Id == "" {
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		c.metrics.RecordAPICall("gmail")
		full, err := svc.Users.Messages.Get("me", ref.Id).
			Format("full").
			Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s for %s: %w", ref.Id, userEmail, err)
		}
		messages = append(messages, full)
	}

	c.log.Debug("mailbox fetch complete",
		zap.String("user", userEmail),
		zap.Int("messages", len(messages)),
	)
	return messages, nil
}
