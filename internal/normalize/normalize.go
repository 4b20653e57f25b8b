package normalize

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"

	"gmailscraper/backend/internal/domain"
)

// unreadLabel Gmail 中未读邮件携带的标签
const unreadLabel = "UNREAD"

// Record 将一条完整的 Gmail 消息转换为扁平分析记录。
//
// 纯函数，不做任何 I/O。所有可选字段在缺失时退化为零值，
// 解析失败（日期、正文）同样退化而不报错，保证单条消息
// 的字段问题不会影响整体摄取。
func Record(msg *gmail.Message, userEmail string) domain.EmailRecord {
	rec := domain.EmailRecord{
		MessageID:    msg.Id,
		ThreadID:     msg.ThreadId,
		UserEmail:    userEmail,
		LabelIDs:     msg.LabelIds,
		SizeEstimate: msg.SizeEstimate,
		ScrapedAt:    time.Now().UTC(),
	}

	var headers []*gmail.MessagePartHeader
	if msg.Payload != nil {
		headers = msg.Payload.Headers
	}

	rec.FromAddress = headerValue(headers, "From")
	rec.ToAddress = headerValue(headers, "To")
	rec.CcAddress = headerValue(headers, "Cc")
	rec.BccAddress = headerValue(headers, "Bcc")
	rec.Subject = headerValue(headers, "Subject")
	rec.DateSent = parseDate(headerValue(headers, "Date"))

	// 附件检测只扫描顶层子部件（不递归），以文件名非空为准
	if msg.Payload != nil {
		for _, part := range msg.Payload.Parts {
			if part != nil && part.Filename != "" {
				rec.AttachmentCount++
			}
		}
	}
	rec.HasAttachments = rec.AttachmentCount > 0

	for _, label := range msg.LabelIds {
		if label == unreadLabel {
			rec.IsUnread = true
			break
		}
	}

	rec.BodySnippet = truncate(msg.Snippet, domain.MaxSnippetLen)
	rec.BodyText = truncate(ExtractBodyText(msg.Payload), domain.MaxBodyTextLen)

	return rec
}

// headerValue 在消息头列表中按名称提取值。
//
// 名称比较不区分大小写，取第一个匹配；不存在时返回空串。
func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// parseDate 将 RFC 5322 日期串解析为绝对时间；解析失败返回 nil。
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := mail.ParseDate(value)
	if err != nil {
		return nil
	}
	return &t
}

// truncate 按字符数截断字符串（与 Sink 字段上限对齐）。
func truncate(s string, max int) string {
	if len(s) <= max || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
