package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"

	"gmailscraper/backend/internal/config"
	"gmailscraper/backend/internal/domain"
	"gmailscraper/backend/internal/monitoring"
	"gmailscraper/backend/internal/normalize"
	"gmailscraper/backend/internal/sink"
	"gmailscraper/backend/internal/watermark"
)

// ErrRunInProgress 表示已有一次运行在执行中。
var ErrRunInProgress = errors.New("scrape run already in progress")

// DirectoryLister 枚举域内全部用户的能力。
type DirectoryLister interface {
	ListUsers(ctx context.Context) ([]domain.DirectoryUser, error)
}

// MailboxFetcher 抓取单个用户完整邮件的能力。
type MailboxFetcher interface {
	FetchMessages(ctx context.Context, userEmail, query string, max int) ([]*gmail.Message, error)
}

// RunOptions 单次运行的可选参数，零值回落到配置默认。
type RunOptions struct {
	Query      string `json:"query"`
	MaxPerUser int    `json:"max_per_user"`
}

// RunService 驱动整条摄取流水线：
// 初始化 Sink → 枚举用户 → 逐用户 抓取/规整/写入 → 汇总。
//
// 用户严格串行处理，互不重叠，以限制同时存在的委派会话数；
// RunResult 由本服务独占持有和修改。
type RunService struct {
	directory  DirectoryLister
	mailbox    MailboxFetcher
	sink       sink.Writer
	watermarks watermark.Store
	cfg        config.ScrapeConfig
	metrics    *monitoring.Metrics
	log        *zap.Logger

	running atomic.Bool
}

// NewRunService 创建运行编排服务。
//
// marks 为 nil 或 cfg.Incremental 为 false 时禁用增量抓取；
// metrics 可为 nil（测试场景）。
func NewRunService(
	directory DirectoryLister,
	mailbox MailboxFetcher,
	sinkWriter sink.Writer,
	marks watermark.Store,
	cfg config.ScrapeConfig,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *RunService {
	return &RunService{
		directory:  directory,
		mailbox:    mailbox,
		sink:       sinkWriter,
		watermarks: marks,
		cfg:        cfg,
		metrics:    metrics,
		log:        log,
	}
}

// Run 执行一次完整抓取，返回聚合结果。
//
// 同一时刻只允许一次运行，冲突时返回 ErrRunInProgress。
// 除此之外 Run 总是返回结构化结果：初始化失败标记为
// failed，单用户失败只记入错误列表，整体仍是 completed。
func (s *RunService) Run(ctx context.Context, opts RunOptions) (*domain.RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	if opts.MaxPerUser <= 0 {
		opts.MaxPerUser = s.cfg.MaxPerUser
	}
	if opts.Query == "" {
		opts.Query = s.cfg.DefaultQuery
	}

	result := &domain.RunResult{
		RunID:     uuid.NewString(),
		Status:    domain.RunStatusStarted,
		Errors:    []string{},
		StartedAt: time.Now().UTC(),
	}

	s.metrics.RunStarted()
	defer func() {
		result.FinishedAt = time.Now().UTC()
		result.Duration = result.FinishedAt.Sub(result.StartedAt)
		s.metrics.RunFinished(string(result.Status), result.Duration)
	}()

	s.log.Info("scrape run started",
		zap.String("run_id", result.RunID),
		zap.String("query", opts.Query),
		zap.Int("max_per_user", opts.MaxPerUser),
	)

	// 凭证缺失时服务带病启动，运行在此处明确失败
	if s.directory == nil || s.mailbox == nil {
		s.fail(result, errors.New("google credentials not configured"))
		return result, nil
	}

	if err := s.sink.EnsureSchema(ctx); err != nil {
		s.fail(result, fmt.Errorf("initialize sink: %w", err))
		return result, nil
	}

	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		s.fail(result, fmt.Errorf("list users: %w", err))
		return result, nil
	}
	result.TotalUsers = len(users)

	for _, user := range users {
		// 上下文取消（调用方超时等）视为致命，立即收尾
		if ctx.Err() != nil {
			s.fail(result, ctx.Err())
			return result, nil
		}

		if err := s.processUser(ctx, user.PrimaryEmail, opts, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", user.PrimaryEmail, err))
			s.metrics.RecordUserError()
			s.log.Warn("user scrape failed",
				zap.String("run_id", result.RunID),
				zap.String("user", user.PrimaryEmail),
				zap.Error(err),
			)
			continue
		}

		result.UsersProcessed++
		s.metrics.RecordUserProcessed()
	}

	result.Status = domain.RunStatusCompleted
	s.log.Info("scrape run completed",
		zap.String("run_id", result.RunID),
		zap.Int("users_processed", result.UsersProcessed),
		zap.Int("total_emails", result.TotalEmails),
		zap.Int("user_errors", len(result.Errors)),
	)
	return result, nil
}

// processUser 处理单个用户：抓取 → 规整 → 写入 → 推进水位线。
//
// 返回的任何错误都只记入该用户的错误条目，不会中断运行。
func (s *RunService) processUser(ctx context.Context, userEmail string, opts RunOptions, result *domain.RunResult) error {
	query := opts.Query
	if s.incremental() {
		mark, err := s.watermarks.Get(ctx, userEmail)
		if err != nil {
			// 水位线读取失败退化为全量抓取
			s.log.Warn("watermark read failed, falling back to full fetch",
				zap.String("user", userEmail),
				zap.Error(err),
			)
			mark = 0
		}
		query = watermark.AfterQuery(query, mark)
	}

	msgs, err := s.mailbox.FetchMessages(ctx, userEmail, query, opts.MaxPerUser)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	records := make([]domain.EmailRecord, 0, len(msgs))
	var maxInternal int64
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		records = append(records, normalize.Record(msg, userEmail))
		if msg.InternalDate > maxInternal {
			maxInternal = msg.InternalDate
		}
	}

	inserted, err := s.sink.Write(ctx, records)
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	result.TotalEmails += inserted
	s.metrics.RecordEmails(inserted)

	if s.incremental() && inserted > 0 && maxInternal > 0 {
		if err := s.watermarks.Set(ctx, userEmail, maxInternal); err != nil {
			// 推进失败只影响下次运行的增量范围，不影响本次结果
			s.log.Warn("watermark advance failed",
				zap.String("user", userEmail),
				zap.Error(err),
			)
		}
	}

	return nil
}

// incremental 判断增量抓取是否可用。
func (s *RunService) incremental() bool {
	return s.cfg.Incremental && s.watermarks != nil
}

// fail 将运行标记为致命失败。
func (s *RunService) fail(result *domain.RunResult, err error) {
	result.Status = domain.RunStatusFailed
	result.Error = err.Error()
	s.log.Error("scrape run failed",
		zap.String("run_id", result.RunID),
		zap.Error(err),
	)
}
