package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// SessionPruner インターフェースに対するモック実装
type mockPruner struct {
	mu      sync.Mutex
	calls   int
	deleted int64
	err     error
}

func (m *mockPruner) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.deleted, m.err
}

func (m *mockPruner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestSessionCleanupJob_Run_DeletesExpiredSessions(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockPruner{deleted: 5}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if mock.count() != 1 {
		t.Fatalf("DeleteExpired の呼び出し回数 = %d, want 1", mock.count())
	}
}

func TestSessionCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockPruner{deleted: 12}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログのパースに失敗: %v", err)
	}
	if entry["deleted_count"] != float64(12) {
		t.Errorf("deleted_count = %v, want 12", entry["deleted_count"])
	}
}

func TestSessionCleanupJob_Run_NoRowsIsNotAnError(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockPruner{deleted: 0}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Errorf("削除対象0件でもエラーにならないこと: %v", err)
	}
}

func TestSessionCleanupJob_Run_ReturnsDeleteError(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockPruner{err: errors.New("connection refused")}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DeleteExpired の失敗はエラーとして返すこと")
	}
	if !strings.Contains(err.Error(), "セッションクリーンアップの実行に失敗") {
		t.Errorf("エラーメッセージ = %q", err.Error())
	}
}

func TestSessionCleanupJob_RunLoop_StopsOnContextCancel(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockPruner{}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunLoop(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunLoop がキャンセル後に停止しなかった")
	}
}

func TestSessionCleanupJob_RunLoop_ContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockPruner{err: errors.New("connection refused")}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		job.RunLoop(ctx, 5*time.Millisecond)
		close(done)
	}()

	// 失敗する実行が複数回繰り返されることを確認する
	deadline := time.After(time.Second)
	for mock.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("失敗後にループが継続しなかった")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
	<-done
}
