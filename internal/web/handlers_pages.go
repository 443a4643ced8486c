package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-forge/internal/forms"
)

const contactSubject = "Message from Blog site"

func (s *Server) about(c *gin.Context) {
	s.render(c, http.StatusOK, pageAbout, &viewData{Title: "About"})
}

// contact は入力内容から mailto リンクを組み立ててリダイレクトします。
// サーバー側では何も保存・送信しません。
func (s *Server) contact(c *gin.Context) {
	form := &forms.ContactForm{}
	if c.Request.Method != http.MethodPost {
		s.render(c, http.StatusOK, pageContact, &viewData{Title: "Contact", Form: form})
		return
	}

	if err := forms.Bind(c, form); err != nil {
		s.logger.WithError(err).Debug("contact form bind failed")
	}
	c.Redirect(http.StatusSeeOther, mailtoLink(s.cfg.ContactEmail, form))
}

func mailtoLink(to string, form *forms.ContactForm) string {
	body := fmt.Sprintf("Name: %s\nEmail: %s\nPhone:%s\nMessage:\n%s", form.Name, form.Email, form.Phone, form.Message)
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", to, mailtoEscape(contactSubject), mailtoEscape(body))
}

// mailtoEscape は空白を %20 にしたパーセントエンコードを行います（RFC 6068）。
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
