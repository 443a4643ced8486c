package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/yourusername/blog-forge/internal/auth"
	"github.com/yourusername/blog-forge/internal/forms"
	"github.com/yourusername/blog-forge/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex    = "index.html"
	pagePost     = "post.html"
	pageRegister = "register.html"
	pageLogin    = "login.html"
	pageMakePost = "make-post.html"
	pageAbout    = "about.html"
	pageContact  = "contact.html"
	pageError    = "error.html"

	layoutFile = "base.html"
)

var pages = []string{
	pageIndex,
	pagePost,
	pageRegister,
	pageLogin,
	pageMakePost,
	pageAbout,
	pageContact,
	pageError,
}

var functions = template.FuncMap{
	// 記事本文はエディターが生成した HTML をそのまま表示する
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
}

// viewData はテンプレートに渡すデータです。
type viewData struct {
	Title       string
	CurrentUser *storage.User
	LoggedIn    bool
	Flashes     []string
	CSRFToken   string
	Year        int

	Posts  []storage.Post
	Post   *storage.Post
	Form   any
	Errors forms.Result
	IsEdit bool

	Status  int
	Message string
}

// htmlRenderer はページごとに base.html と組み合わせたテンプレートを保持します。
type htmlRenderer struct {
	pages map[string]*template.Template
}

func newHTMLRenderer() (*htmlRenderer, error) {
	r := &htmlRenderer{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		ts, err := template.New(page).Funcs(functions).ParseFS(templateFS, "templates/"+layoutFile, "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = ts
	}
	return r, nil
}

// Instance は gin の HTMLRender インターフェースを満たします。
func (r *htmlRenderer) Instance(name string, data any) render.Render {
	ts, ok := r.pages[name]
	if !ok {
		ts = r.pages[pageError]
	}
	return render.HTML{Template: ts, Name: "base", Data: data}
}

// render はフラッシュと CSRF トークンを詰めてからページを描画します。
func (s *Server) render(c *gin.Context, status int, page string, data *viewData) {
	if data == nil {
		data = &viewData{}
	}

	session := sessions.Default(c)
	for _, f := range session.Flashes() {
		if msg, ok := f.(string); ok {
			data.Flashes = append(data.Flashes, msg)
		}
	}

	token, err := auth.CSRFToken(c)
	if err != nil {
		s.logger.WithError(err).Error("failed to issue csrf token")
	}
	data.CSRFToken = token

	if err := session.Save(); err != nil {
		s.logger.WithError(err).Warn("failed to save session")
	}

	data.CurrentUser = auth.CurrentUser(c)
	data.LoggedIn = data.CurrentUser != nil
	data.Year = s.now().Year()

	c.HTML(status, page, data)
}

func (s *Server) flash(c *gin.Context, message string) {
	sessions.Default(c).AddFlash(message)
}

// redirect はセッションを保存してから 303 でリダイレクトします。
func (s *Server) redirect(c *gin.Context, location string) {
	if err := sessions.Default(c).Save(); err != nil {
		s.logger.WithError(err).Warn("failed to save session")
	}
	c.Redirect(http.StatusSeeOther, location)
}
