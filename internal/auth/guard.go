package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-forge/internal/storage"
)

// LoginRequiredMessage は未ログインで保護ページへアクセスした際のフラッシュです。
const LoginRequiredMessage = "Please log in to access this page."

// LoginPath はログインページのパスです。
const LoginPath = "/login"

// Require はログインを必須とするハンドラーの先頭で呼び出します。
// 匿名の場合はフラッシュを積んで /login へリダイレクトし、false を返します。
func (m *Manager) Require(c *gin.Context) (*storage.User, bool) {
	if user := CurrentUser(c); user != nil {
		return user, true
	}

	session := sessions.Default(c)
	session.AddFlash(LoginRequiredMessage)
	if err := session.Save(); err != nil {
		m.logger.WithError(err).Warn("failed to save session")
	}
	c.Redirect(http.StatusSeeOther, LoginPath)
	c.Abort()
	return nil, false
}
