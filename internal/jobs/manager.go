// Package jobs はコメント通知の非同期ジョブを管理します。
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/blog-forge/internal/config"
	"github.com/yourusername/blog-forge/internal/notify"
	"github.com/yourusername/blog-forge/internal/storage"
)

const (
	// TaskTypeCommentNotify はコメント通知タスクの種別です。
	TaskTypeCommentNotify = "comment:notify"

	queueNotifications = "notifications"
)

// CommentLoader は通知に必要なコメントを読み込みます。
type CommentLoader interface {
	GetComment(ctx context.Context, id uint) (*storage.Comment, error)
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Manager はジョブの投入と状態管理を担います。
type Manager struct {
	cfg      *config.Config
	client   enqueuer
	server   *asynq.Server
	mux      *asynq.ServeMux
	store    RecordStore
	comments CommentLoader
	sender   notify.Sender
	logger   logrus.FieldLogger
}

// TaskPayload はコメント通知ジョブのペイロードです。
type TaskPayload struct {
	JobID       string `json:"jobId"`
	CommentID   uint   `json:"commentId"`
	RequestedBy uint   `json:"requestedBy,omitempty"`
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, store RecordStore, comments CommentLoader, sender notify.Sender, logger logrus.FieldLogger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if comments == nil {
		return nil, errors.New("comment loader is nil")
	}
	if sender == nil {
		return nil, errors.New("sender is nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queueNotifications: 1,
			},
			Logger: logger,
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		cfg:      cfg,
		client:   client,
		server:   server,
		mux:      mux,
		store:    store,
		comments: comments,
		sender:   sender,
		logger:   logger,
	}
	mux.HandleFunc(TaskTypeCommentNotify, manager.handleCommentTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.WithError(err).Error("asynq server stopped with error")
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.server != nil {
		m.server.Shutdown()
	}
	return m.client.Close()
}

// NotifyComment はコメント通知ジョブを投入し、ジョブ ID を返します。
// requestedBy はコメントを投稿したユーザーで、ジョブ記録を参照できる唯一のユーザーです。
func (m *Manager) NotifyComment(ctx context.Context, commentID, requestedBy uint) (string, error) {
	return m.Enqueue(ctx, &TaskPayload{
		JobID:       uuid.NewString(),
		CommentID:   commentID,
		RequestedBy: requestedBy,
	})
}

// Enqueue はジョブ記録を queued で保存してからキューに投入します。
func (m *Manager) Enqueue(ctx context.Context, payload *TaskPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("payload is nil")
	}
	if payload.JobID == "" {
		return "", fmt.Errorf("payload.JobID is required")
	}

	record := &Record{
		JobID:       payload.JobID,
		Operation:   OperationCommentNotify,
		Status:      StatusQueued,
		RequestedBy: payload.RequestedBy,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   "queued",
		},
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(TaskTypeCommentNotify, body)
	if _, err := m.client.EnqueueContext(ctx, task, asynq.Queue(queueNotifications), asynq.MaxRetry(1)); err != nil {
		_ = m.store.MarkFailed(ctx, payload.JobID, &ErrorInfo{Code: "ENQUEUE_FAILED", Message: err.Error()})
		return "", err
	}
	m.logger.WithFields(logrus.Fields{
		"jobId":     payload.JobID,
		"commentId": payload.CommentID,
	}).Debug("comment notification enqueued")
	return payload.JobID, nil
}

// GetRecord はジョブ情報を取得します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}
