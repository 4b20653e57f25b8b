package gsuite

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// Credentials 封装服务账号密钥，可按需委派为任意域内用户。
//
// 密钥在进程启动时加载一次；每次委派只是复制配置并设置
// Subject，不会重新读取文件。
type Credentials struct {
	base *jwt.Config
}

// LoadCredentials 从服务账号密钥 JSON 文件加载凭证。
func LoadCredentials(path string, scopes []string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account key: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	return &Credentials{base: conf}, nil
}

// Delegate 将凭证收窄为以指定邮箱用户身份行事的委派会话。
//
// 目录读取委派给域管理员，邮箱读取委派给邮箱所有者本人。
func (c *Credentials) Delegate(ctx context.Context, subject string) oauth2.TokenSource {
	conf := *c.base
	conf.Subject = subject
	return conf.TokenSource(ctx)
}
