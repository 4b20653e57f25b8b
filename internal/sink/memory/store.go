package memory

import (
	"context"
	"sync"

	"gmailscraper/backend/internal/domain"
)

// Store 内存 Sink，实现 sink.Writer。
//
// 用于开发模式（未配置 BigQuery 项目时）和测试。
// 提供故障注入开关以便验证编排层的错误隔离行为。
type Store struct {
	mu          sync.Mutex
	records     []domain.EmailRecord
	schemaReady bool

	ensureErr error
	writeErr  error
	reject    bool
}

// NewStore 创建内存 Sink。
func NewStore() *Store {
	return &Store{}
}

// EnsureSchema 标记模式已就绪；注入了错误时返回该错误。
func (s *Store) EnsureSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ensureErr != nil {
		return s.ensureErr
	}
	s.schemaReady = true
	return nil
}

// Write 追加记录并返回接受的行数。
//
// 注入的写错误正常上抛；开启拒绝模式时返回 0 行（模拟
// Sink 批量拒绝，按规约不算错误）。
func (s *Store) Write(_ context.Context, records []domain.EmailRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.reject {
		return 0, nil
	}

	s.records = append(s.records, records...)
	return len(records), nil
}

// Records 返回已写入记录的副本。
func (s *Store) Records() []domain.EmailRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.EmailRecord, len(s.records))
	copy(out, s.records)
	return out
}

// SchemaReady 返回 EnsureSchema 是否已成功执行。
func (s *Store) SchemaReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemaReady
}

// FailEnsureSchema 注入模式创建错误（nil 取消注入）。
func (s *Store) FailEnsureSchema(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureErr = err
}

// FailWrite 注入写入错误（nil 取消注入）。
func (s *Store) FailWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// RejectWrites 开关拒绝模式：写入返回 0 行但不报错。
func (s *Store) RejectWrites(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = reject
}
