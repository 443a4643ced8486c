package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/blog-forge/internal/notify"
	"github.com/yourusername/blog-forge/internal/storage"
)

func (m *Manager) handleCommentTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload: %w", asynq.SkipRetry)
	}
	return m.process(ctx, &payload)
}

// process はコメントを読み込み、記事の著者へ通知を送ります。
// 送信失敗はエラーとして返し、Asynq のリトライに委ねます。
func (m *Manager) process(ctx context.Context, payload *TaskPayload) error {
	if err := m.markRunning(ctx, payload, "load", 10); err != nil {
		return err
	}

	comment, err := m.comments.GetComment(ctx, payload.CommentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return m.finish(ctx, payload.JobID, Outcome{CommentID: payload.CommentID, Reason: ReasonCommentMissing})
		}
		_ = m.store.MarkFailed(ctx, payload.JobID, &ErrorInfo{Code: "INTERNAL_ERROR", Message: err.Error()})
		return err
	}

	outcome := Outcome{CommentID: comment.ID, PostID: comment.PostID}
	msg, reason := m.buildMessage(comment)
	if reason != "" {
		outcome.Reason = reason
		return m.finish(ctx, payload.JobID, outcome)
	}

	if err := m.markRunning(ctx, payload, "send", 50); err != nil {
		return err
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.WithError(err).WithField("jobId", payload.JobID).Warn("failed to send comment notification")
		_ = m.store.MarkFailed(ctx, payload.JobID, &ErrorInfo{Code: "MAIL_FAILED", Message: err.Error()})
		return err
	}

	outcome.Sent = true
	return m.finish(ctx, payload.JobID, outcome)
}

// buildMessage は通知メールを組み立てます。送らない場合は理由を返します。
func (m *Manager) buildMessage(comment *storage.Comment) (notify.Message, string) {
	post := comment.Post
	if post == nil {
		return notify.Message{}, ReasonPostDeleted
	}
	if post.Author == nil || strings.TrimSpace(post.Author.Email) == "" {
		return notify.Message{}, ReasonNoRecipient
	}
	if comment.CommentatorID == post.AuthorID {
		return notify.Message{}, ReasonOwnPost
	}

	commenter := "Someone"
	if comment.Commentator != nil && comment.Commentator.Name != "" {
		commenter = comment.Commentator.Name
	}
	link := fmt.Sprintf("%s/post/%d", strings.TrimRight(m.cfg.SiteURL, "/"), post.ID)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", post.Author.Name)
	fmt.Fprintf(&body, "%s commented on your post \"%s\":\n\n", commenter, post.Title)
	body.WriteString(comment.Text)
	fmt.Fprintf(&body, "\n\nRead the conversation at %s\n", link)

	return notify.Message{
		To:      post.Author.Email,
		ToName:  post.Author.Name,
		Subject: fmt.Sprintf("New comment on \"%s\"", post.Title),
		Text:    body.String(),
	}, ""
}

func (m *Manager) markRunning(ctx context.Context, payload *TaskPayload, stage string, percent int) error {
	progress := ProgressInfo{Percent: percent, Stage: stage}
	err := m.store.MarkRunning(ctx, payload.JobID, progress)
	if errors.Is(err, ErrJobNotFound) {
		// 記録が期限切れで消えていても通知自体は続行する
		return m.store.Upsert(ctx, &Record{
			JobID:       payload.JobID,
			Operation:   OperationCommentNotify,
			Status:      StatusRunning,
			RequestedBy: payload.RequestedBy,
			Progress:    progress,
		})
	}
	return err
}

func (m *Manager) finish(ctx context.Context, jobID string, outcome Outcome) error {
	m.logger.WithFields(logrus.Fields{
		"jobId":     jobID,
		"commentId": outcome.CommentID,
		"sent":      outcome.Sent,
		"reason":    outcome.Reason,
	}).Info("comment notification finished")
	return m.store.MarkDone(ctx, jobID, outcome)
}
