package domain

import "time"

// RunStatus 表示一次抓取运行的整体状态。
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult 是一次运行的聚合结果，随触发响应返回，不做持久化。
//
// 部分用户失败不影响整体 completed 状态；
// 只有初始化阶段（Sink、目录）失败才会标记为 failed。
type RunResult struct {
	RunID          string        `json:"run_id"`
	Status         RunStatus     `json:"status"`
	TotalUsers     int           `json:"total_users"`
	UsersProcessed int           `json:"users_processed"`
	TotalEmails    int           `json:"total_emails"`
	Errors         []string      `json:"errors"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Duration       time.Duration `json:"duration_ns"`
}
