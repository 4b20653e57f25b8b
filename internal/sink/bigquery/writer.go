package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"gmailscraper/backend/internal/config"
	"gmailscraper/backend/internal/domain"
	"gmailscraper/backend/internal/monitoring"
)

// emailSchema 目标表的固定列集（与分析侧约定，勿随意变更）
var emailSchema = bigquery.Schema{
	{Name: "message_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "thread_id", Type: bigquery.StringFieldType},
	{Name: "user_email", Type: bigquery.StringFieldType},
	{Name: "from_address", Type: bigquery.StringFieldType},
	{Name: "to_address", Type: bigquery.StringFieldType},
	{Name: "cc_address", Type: bigquery.StringFieldType},
	{Name: "bcc_address", Type: bigquery.StringFieldType},
	{Name: "subject", Type: bigquery.StringFieldType},
	{Name: "body_snippet", Type: bigquery.StringFieldType},
	{Name: "body_text", Type: bigquery.StringFieldType},
	{Name: "date_sent", Type: bigquery.TimestampFieldType},
	{Name: "label_ids", Type: bigquery.StringFieldType, Repeated: true},
	{Name: "is_unread", Type: bigquery.BooleanFieldType},
	{Name: "has_attachments", Type: bigquery.BooleanFieldType},
	{Name: "attachment_count", Type: bigquery.IntegerFieldType},
	{Name: "size_estimate", Type: bigquery.IntegerFieldType},
	{Name: "scraped_at", Type: bigquery.TimestampFieldType},
}

// Writer 将邮件记录批量写入 BigQuery 表，实现 sink.Writer。
type Writer struct {
	client    *bigquery.Client
	datasetID string
	tableID   string
	batchSize int
	metrics   *monitoring.Metrics
	log       *zap.Logger
}

// NewWriter 创建 BigQuery 写入器。metrics 可为 nil。
//
// opts 透传给底层客户端（凭证、endpoint 等）。
func NewWriter(ctx context.Context, cfg config.BigQueryConfig, metrics *monitoring.Metrics, log *zap.Logger, opts ...option.ClientOption) (*Writer, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	return &Writer{
		client:    client,
		datasetID: cfg.DatasetID,
		tableID:   cfg.TableID,
		batchSize: batchSize,
		metrics:   metrics,
		log:       log,
	}, nil
}

// EnsureSchema 幂等地创建数据集和目标表。
//
// 数据集或表已存在时静默跳过；其他错误对整次运行是致命的。
func (w *Writer) EnsureSchema(ctx context.Context) error {
	dataset := w.client.Dataset(w.datasetID)
	if err := dataset.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create dataset %s: %w", w.datasetID, err)
	}

	table := dataset.Table(w.tableID)
	if _, err := table.Metadata(ctx); err == nil {
		w.log.Info("target table already exists",
			zap.String("dataset", w.datasetID),
			zap.String("table", w.tableID),
		)
		return nil
	}

	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: emailSchema}); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create table %s.%s: %w", w.datasetID, w.tableID, err)
	}

	w.log.Info("target table created",
		zap.String("dataset", w.datasetID),
		zap.String("table", w.tableID),
	)
	return nil
}

// Write 批量追加记录，返回被接受的行数。
//
// 流式插入的拒绝（bigquery.PutMultiError）被记录日志并按
// 0 行处理，不作为错误返回；传输层错误正常上抛。
func (w *Writer) Write(ctx context.Context, records []domain.EmailRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	inserter := w.client.Dataset(w.datasetID).Table(w.tableID).Inserter()

	inserted := 0
	for start := 0; start < len(records); start += w.batchSize {
		end := start + w.batchSize
		if end > len(records) {
			end = len(records)
		}

		rows := make([]*recordRow, 0, end-start)
		for i := start; i < end; i++ {
			rows = append(rows, &recordRow{rec: records[i]})
		}

		if err := inserter.Put(ctx, rows); err != nil {
			var multiErr bigquery.PutMultiError
			if errors.As(err, &multiErr) {
				w.metrics.RecordSinkRejected(len(multiErr))
				w.log.Warn("sink rejected batch",
					zap.Int("rows", len(rows)),
					zap.Int("rejected", len(multiErr)),
					zap.Error(multiErr),
				)
				return 0, nil
			}
			return 0, fmt.Errorf("insert rows: %w", err)
		}
		inserted += len(rows)
	}

	return inserted, nil
}

// Close 释放底层客户端。
func (w *Writer) Close() error {
	return w.client.Close()
}

// recordRow 将 EmailRecord 映射为 BigQuery 行。
//
// 可选字段为空时写 NULL；insert id 取消息 ID，
// 使同一消息的重复摄取可被流式去重。
type recordRow struct {
	rec domain.EmailRecord
}

// Save 实现 bigquery.ValueSaver。
func (r *recordRow) Save() (map[string]bigquery.Value, string, error) {
	labels := r.rec.LabelIDs
	if labels == nil {
		labels = []string{}
	}

	row := map[string]bigquery.Value{
		"message_id":       r.rec.MessageID,
		"user_email":       r.rec.UserEmail,
		"label_ids":        labels,
		"is_unread":        r.rec.IsUnread,
		"has_attachments":  r.rec.HasAttachments,
		"attachment_count": r.rec.AttachmentCount,
		"size_estimate":    r.rec.SizeEstimate,
		"scraped_at":       r.rec.ScrapedAt,
	}

	setOptional(row, "thread_id", r.rec.ThreadID)
	setOptional(row, "from_address", r.rec.FromAddress)
	setOptional(row, "to_address", r.rec.ToAddress)
	setOptional(row, "cc_address", r.rec.CcAddress)
	setOptional(row, "bcc_address", r.rec.BccAddress)
	setOptional(row, "subject", r.rec.Subject)
	setOptional(row, "body_snippet", r.rec.BodySnippet)
	setOptional(row, "body_text", r.rec.BodyText)

	if r.rec.DateSent != nil {
		row["date_sent"] = *r.rec.DateSent
	}

	return row, r.rec.MessageID, nil
}

// setOptional 仅在值非空时写入列，空值保持 NULL
func setOptional(row map[string]bigquery.Value, column, value string) {
	if value != "" {
		row[column] = value
	}
}

// isAlreadyExists 判断 API 错误是否为"资源已存在"
func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
