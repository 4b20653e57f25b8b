package domain

import "time"

const (
	// MaxSnippetLen 摘要字段的最大长度
	MaxSnippetLen = 500
	// MaxBodyTextLen 正文字段的最大长度（BigQuery 字段上限）
	MaxBodyTextLen = 65535
)

// EmailRecord 是写入分析表的扁平化邮件记录。
//
// MessageID 在目标表中全局唯一；重复摄取同一 ID 依赖
// Sink 侧的 insert id 去重，本系统只做追加。
// 可选字段缺失时保持零值，由 Sink 写入时映射为 NULL。
type EmailRecord struct {
	MessageID       string     `json:"message_id"`
	ThreadID        string     `json:"thread_id,omitempty"`
	UserEmail       string     `json:"user_email"`
	FromAddress     string     `json:"from_address,omitempty"`
	ToAddress       string     `json:"to_address,omitempty"`
	CcAddress       string     `json:"cc_address,omitempty"`
	BccAddress      string     `json:"bcc_address,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	BodySnippet     string     `json:"body_snippet,omitempty"`
	BodyText        string     `json:"body_text,omitempty"`
	DateSent        *time.Time `json:"date_sent,omitempty"`
	LabelIDs        []string   `json:"label_ids,omitempty"`
	IsUnread        bool       `json:"is_unread"`
	HasAttachments  bool       `json:"has_attachments"`
	AttachmentCount int        `json:"attachment_count"`
	SizeEstimate    int64      `json:"size_estimate"`
	ScrapedAt       time.Time  `json:"scraped_at"`
}
