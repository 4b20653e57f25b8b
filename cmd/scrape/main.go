package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"gmailscraper/backend/internal/config"
	"gmailscraper/backend/internal/domain"
	"gmailscraper/backend/internal/gsuite"
	"gmailscraper/backend/internal/logger"
	"gmailscraper/backend/internal/service"
	"gmailscraper/backend/internal/sink"
	"gmailscraper/backend/internal/sink/bigquery"
	"gmailscraper/backend/internal/sink/memory"
	"gmailscraper/backend/internal/watermark"
)

// main 执行一次抓取并把聚合结果以 JSON 打印到标准输出。
// 适合 cron 或一次性回填场景，不启动 HTTP 服务。
func main() {
	query := flag.String("query", "", "Gmail 搜索查询，留空表示抓取全部邮件")
	maxPerUser := flag.Int("max-per-user", 0, "每用户抓取上限，0 表示使用配置默认值")
	dryRun := flag.Bool("dry-run", false, "只抓取不写入 BigQuery，结果落在内存")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 无法加载配置: %v\n", err)
		os.Exit(1)
	}
	// dry-run 不落 BigQuery，放过不完整的目标配置
	if err := cfg.ValidateForRun(); err != nil && !*dryRun {
		fmt.Fprintf(os.Stderr, "错误: 配置不完整: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 无法初始化日志: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	creds, err := gsuite.LoadCredentials(cfg.Google.CredentialsFile, config.DefaultScopes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 无法加载服务账号凭证: %v\n", err)
		os.Exit(1)
	}

	directory := gsuite.NewDirectoryClient(creds, cfg.Google.AdminEmail, cfg.Scrape.UserPageSize, nil, log)
	mailbox := gsuite.NewMailboxClient(creds, cfg.Google.RequestsPerSecond, cfg.Scrape.MessagePageSize, nil, log)

	var sinkWriter sink.Writer
	if *dryRun || cfg.BigQuery.ProjectID == "" {
		log.Warn("using in-memory sink, no rows will reach BigQuery")
		sinkWriter = memory.NewStore()
	} else {
		writer, err := bigquery.NewWriter(ctx, cfg.BigQuery, nil, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: 无法创建 BigQuery 客户端: %v\n", err)
			os.Exit(1)
		}
		defer writer.Close()
		sinkWriter = writer
	}

	var marks watermark.Store
	if cfg.Redis.Address != "" {
		redisMarks, err := watermark.NewRedisStore(cfg.Redis, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: 无法连接水位线存储: %v\n", err)
			os.Exit(1)
		}
		defer redisMarks.Close()
		marks = redisMarks
	} else {
		marks = watermark.NewMemoryStore()
	}

	runService := service.NewRunService(directory, mailbox, sinkWriter, marks, cfg.Scrape, nil, log)

	result, err := runService.Run(ctx, service.RunOptions{
		Query:      *query,
		MaxPerUser: *maxPerUser,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 运行失败: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 无法序列化结果: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if result.Status == domain.RunStatusFailed {
		log.Error("scrape run failed", zap.String("error", result.Error))
		os.Exit(1)
	}
}
