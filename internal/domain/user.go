package domain

// DirectoryUser 表示目录服务中的一名域内用户。
//
// 每次运行时从 Admin Directory 重新拉取，本系统不持久化。
type DirectoryUser struct {
	PrimaryEmail string `json:"primaryEmail"`
}
