package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"gmailscraper/backend/internal/domain"
)

func TestRecord(t *testing.T) {
	msg := &gmail.Message{
		Id:           "msg-001",
		ThreadId:     "thread-001",
		LabelIds:     []string{"UNREAD", "INBOX"},
		Snippet:      "a short preview",
		SizeEstimate: 2048,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
				{Name: "To", Value: "bob@example.com"},
				{Name: "cc", Value: "carol@example.com"},
				{Name: "Subject", Value: "quarterly report"},
				{Name: "Date", Value: "Tue, 14 Jan 2025 10:30:00 +0000"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("report attached")}},
				{MimeType: "application/pdf", Filename: "report.pdf"},
			},
		},
	}

	rec := Record(msg, "bob@example.com")

	assert.Equal(t, "msg-001", rec.MessageID)
	assert.Equal(t, "thread-001", rec.ThreadID)
	assert.Equal(t, "bob@example.com", rec.UserEmail)
	assert.Equal(t, "alice@example.com", rec.FromAddress)
	assert.Equal(t, "bob@example.com", rec.ToAddress)
	// 消息头名称不区分大小写
	assert.Equal(t, "carol@example.com", rec.CcAddress)
	assert.Empty(t, rec.BccAddress)
	assert.Equal(t, "quarterly report", rec.Subject)
	assert.Equal(t, "a short preview", rec.BodySnippet)
	assert.Equal(t, "report attached", rec.BodyText)
	assert.Equal(t, []string{"UNREAD", "INBOX"}, rec.LabelIDs)
	assert.True(t, rec.IsUnread)
	assert.True(t, rec.HasAttachments)
	assert.Equal(t, 1, rec.AttachmentCount)
	assert.Equal(t, int64(2048), rec.SizeEstimate)
	assert.False(t, rec.ScrapedAt.IsZero())

	require.NotNil(t, rec.DateSent)
	expected := time.Date(2025, 1, 14, 10, 30, 0, 0, time.UTC)
	assert.True(t, rec.DateSent.Equal(expected))
}

func TestRecord_MissingFields(t *testing.T) {
	// 只有 ID、没有载荷的消息也必须能正常转换
	rec := Record(&gmail.Message{Id: "bare"}, "user@example.com")

	assert.Equal(t, "bare", rec.MessageID)
	assert.Empty(t, rec.FromAddress)
	assert.Empty(t, rec.Subject)
	assert.Empty(t, rec.BodySnippet)
	assert.Empty(t, rec.BodyText)
	assert.Nil(t, rec.DateSent)
	assert.False(t, rec.IsUnread)
	assert.False(t, rec.HasAttachments)
	assert.Zero(t, rec.AttachmentCount)
}

func TestRecord_DateParsing(t *testing.T) {
	build := func(dateHeader string) *gmail.Message {
		msg := &gmail.Message{
			Id:      "d",
			Payload: &gmail.MessagePart{},
		}
		if dateHeader != "" {
			msg.Payload.Headers = []*gmail.MessagePartHeader{{Name: "Date", Value: dateHeader}}
		}
		return msg
	}

	t.Run("缺少日期头", func(t *testing.T) {
		assert.Nil(t, Record(build(""), "u@example.com").DateSent)
	})

	t.Run("非法日期串", func(t *testing.T) {
		assert.Nil(t, Record(build("not a date"), "u@example.com").DateSent)
	})

	t.Run("合法 RFC 5322 日期", func(t *testing.T) {
		rec := Record(build("Mon, 2 Jan 2006 15:04:05 -0700"), "u@example.com")
		require.NotNil(t, rec.DateSent)
		assert.Equal(t, int64(1136239445), rec.DateSent.Unix())
	})
}

func TestRecord_AttachmentDetection(t *testing.T) {
	msg := &gmail.Message{
		Id: "att",
		Payload: &gmail.MessagePart{
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("hi")}},
				{MimeType: "image/png", Filename: "a.png"},
				{MimeType: "application/zip", Filename: "b.zip"},
				{
					// 嵌套部件中的文件名不计入（只扫顶层）
					MimeType: "multipart/mixed",
					Parts:    []*gmail.MessagePart{{Filename: "nested.txt"}},
				},
			},
		},
	}

	rec := Record(msg, "u@example.com")
	assert.True(t, rec.HasAttachments)
	assert.Equal(t, 2, rec.AttachmentCount)
}

func TestRecord_UnreadFlag(t *testing.T) {
	withLabels := func(labels ...string) *gmail.Message {
		return &gmail.Message{Id: "l", LabelIds: labels}
	}

	assert.True(t, Record(withLabels("UNREAD", "INBOX"), "u@example.com").IsUnread)
	assert.False(t, Record(withLabels("INBOX", "STARRED"), "u@example.com").IsUnread)
	assert.False(t, Record(withLabels(), "u@example.com").IsUnread)
}

func TestRecord_Truncation(t *testing.T) {
	longBody := strings.Repeat("x", domain.MaxBodyTextLen+1000)
	msg := &gmail.Message{
		Id:      "trunc",
		Snippet: strings.Repeat("s", domain.MaxSnippetLen+50),
		Payload: &gmail.MessagePart{
			Body: &gmail.MessagePartBody{Data: b64(longBody)},
		},
	}

	rec := Record(msg, "u@example.com")
	assert.Len(t, rec.BodySnippet, domain.MaxSnippetLen)
	assert.Len(t, rec.BodyText, domain.MaxBodyTextLen)
}
