package gsuite

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"

	"gmailscraper/backend/internal/domain"
	"gmailscraper/backend/internal/monitoring"
)

// DirectoryClient 通过域管理员的委派凭证枚举全域用户。
type DirectoryClient struct {
	creds      *Credentials
	adminEmail string
	pageSize   int64
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewDirectoryClient 创建目录客户端。metrics 可为 nil。
func NewDirectoryClient(creds *Credentials, adminEmail string, pageSize int64, metrics *monitoring.Metrics, log *zap.Logger) *DirectoryClient {
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 500
	}
	return &DirectoryClient{
		creds:      creds,
		adminEmail: adminEmail,
		pageSize:   pageSize,
		metrics:    metrics,
		log:        log,
	}
}

// ListUsers 分页拉取域内全部用户，直到游标耗尽（不设上限）。
//
// 目录不可达对整次运行是致命错误，由调用方决定终止。
func (c *DirectoryClient) ListUsers(ctx context.Context) ([]domain.DirectoryUser, error) {
	svc, err := admin.NewService(ctx,
		option.WithTokenSource(c.creds.Delegate(ctx, c.adminEmail)))
	if err != nil {
		return nil, fmt.Errorf("create directory service: %w", err)
	}

	raw, err := drainPages(ctx, c.pageSize, 0,
		func(ctx context.Context, pageToken string, pageSize int64) ([]*admin.User, string, error) {
			call := svc.Users.List().
				Customer("my_customer").
				MaxResults(pageSize)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}

			c.metrics.RecordAPICall("directory")
			resp, err := call.Context(ctx).Do()
			if err != nil {
				return nil, "", err
			}
			return resp.Users, resp.NextPageToken, nil
		})
	if err != nil {
		return nil, fmt.Errorf("list domain users: %w", err)
	}

	users := make([]domain.DirectoryUser, 0, len(raw))
	for _, u := range raw {
		if u == nil || u.PrimaryEmail == "" {
			continue
		}
		users = append(users, domain.DirectoryUser{PrimaryEmail: u.PrimaryEmail})
	}

	c.log.Info("directory listing complete", zap.Int("users", len(users)))
	return users, nil
}
