// Package auth は認証・認可機能を提供します。
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/blog-forge/internal/logging"
	"github.com/yourusername/blog-forge/internal/storage"
)

// LoadUser はセッションのユーザー ID からユーザーを解決するミドルウェアです。
// 存在しないユーザーを指す ID はセッションから取り除き、匿名として扱います。
// それ以外のストアエラーでは onError を呼び出してリクエストを中断します（nil なら 500 のみ返します）。
func (m *Manager) LoadUser(onError func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		raw := session.Get(sessionKeyUserID)
		if raw == nil {
			c.Next()
			return
		}

		id, ok := readUserID(raw)
		if !ok {
			m.dropUser(c, session)
			c.Next()
			return
		}

		user, err := m.users.GetUser(c.Request.Context(), id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			m.logger.WithField("userId", id).Info("session refers to missing user")
			m.dropUser(c, session)
		case err != nil:
			m.logger.WithError(err).WithField("userId", id).Error("failed to load session user")
			if onError != nil {
				onError(c, err)
			}
			if !c.IsAborted() {
				c.AbortWithStatus(http.StatusInternalServerError)
			}
			return
		default:
			c.Set(ContextUserKey, user)
			c.Set(logging.ContextUserIDKey, user.ID)
		}
		c.Next()
	}
}

func (m *Manager) dropUser(c *gin.Context, session sessions.Session) {
	session.Delete(sessionKeyUserID)
	if err := session.Save(); err != nil {
		m.logger.WithError(err).Warn("failed to save session")
	}
}

// VerifyCSRF は状態変更系リクエストの CSRF トークンを検証するミドルウェアです。
// トークンはフォームの csrf_token か X-CSRF-Token ヘッダーで受け付けます。
// 不一致時は onFail を呼び出します（nil なら 403 のみ返します）。
func (m *Manager) VerifyCSRF(onFail gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, _ := session.Get(sessionKeyCSRF).(string)

		received := c.GetHeader(CSRFHeader)
		if received == "" {
			received = c.PostForm(CSRFFieldName)
		}

		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			m.logger.WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			}).Warn("csrf token mismatch")
			if onFail != nil {
				onFail(c)
			}
			if !c.IsAborted() {
				c.AbortWithStatus(http.StatusForbidden)
			}
			return
		}

		c.Next()
	}
}
