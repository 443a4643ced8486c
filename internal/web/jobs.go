package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-forge/internal/auth"
)

// jobStatus は通知ジョブの状態を JSON で返します。
// 参照できるのはジョブを発生させたコメントの投稿者だけです。
func (s *Server) jobStatus(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "UNAUTHORIZED",
			"message": "Login required.",
		})
		return
	}
	if s.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "JOBS_DISABLED",
			"message": "Background jobs are not enabled.",
		})
		return
	}

	jobID := c.Param("id")
	if strings.TrimSpace(jobID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "Job id is required.",
		})
		return
	}

	record, err := s.notifier.GetRecord(c.Request.Context(), jobID)
	if err != nil {
		s.logger.WithError(err).WithField("jobId", jobID).Error("failed to load job record")
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "Failed to load job.",
		})
		return
	}
	// 他人のジョブは存在しないものとして扱う
	if record == nil || record.RequestedBy != user.ID {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "JOB_NOT_FOUND",
			"message": "Job does not exist.",
		})
		return
	}

	payload := gin.H{
		"jobId":     record.JobID,
		"operation": record.Operation,
		"status":    record.Status,
		"progress": gin.H{
			"percent": record.Progress.Percent,
			"stage":   record.Progress.Stage,
			"message": record.Progress.Message,
		},
		"updatedAt": record.UpdatedAt,
	}
	if record.Meta != nil {
		payload["meta"] = record.Meta
	}
	if record.Error != nil {
		payload["error"] = record.Error
	}
	c.JSON(http.StatusOK, payload)
}
