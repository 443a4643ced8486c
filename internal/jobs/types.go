package jobs

import "time"

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "done"
	StatusFailed    Status = "error"
)

// OperationCommentNotify はコメント通知ジョブの操作名です。
const OperationCommentNotify = "comment_notify"

// ProgressInfo は進捗の補足情報を表します。
type ProgressInfo struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorInfo はジョブ失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outcome は通知ジョブの結果です。Record.Meta に保存されます。
type Outcome struct {
	Sent      bool   `json:"sent"`
	Reason    string `json:"reason,omitempty"`
	CommentID uint   `json:"commentId"`
	PostID    uint   `json:"postId,omitempty"`
}

// 通知を送らなかった理由
const (
	ReasonCommentMissing = "comment_missing"
	ReasonPostDeleted    = "post_deleted"
	ReasonOwnPost        = "own_post"
	ReasonNoRecipient    = "no_recipient"
)

// Record はジョブの現在状態を表します。
type Record struct {
	JobID       string       `json:"jobId"`
	Operation   string       `json:"operation"`
	Status      Status       `json:"status"`
	RequestedBy uint         `json:"requestedBy,omitempty"`
	Progress    ProgressInfo `json:"progress"`
	Meta        any          `json:"meta,omitempty"`
	Error       *ErrorInfo   `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}
