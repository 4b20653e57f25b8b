package domain

import "time"

// Watermark 记录某个用户上次成功摄取到的进度，用于增量抓取。
//
// LastInternalDate 为该用户已写入记录中最大的 Gmail internalDate
// （Unix 毫秒）；下次运行据此构造 after: 查询，只取其后的邮件。
type Watermark struct {
	UserEmail        string    `json:"user_email"`
	LastInternalDate int64     `json:"last_internal_date"`
	UpdatedAt        time.Time `json:"updated_at"`
}
