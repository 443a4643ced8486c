package web

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/blog-forge/internal/auth"
	"github.com/yourusername/blog-forge/internal/config"
	"github.com/yourusername/blog-forge/internal/jobs"
	"github.com/yourusername/blog-forge/internal/storage"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([0-9a-f]+)"`)

var fixedNow = time.Date(2024, time.August, 4, 9, 30, 0, 0, time.UTC)

type fakeNotifier struct {
	mu       sync.Mutex
	comments []uint
	records  map[string]*jobs.Record
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{records: map[string]*jobs.Record{}}
}

func (f *fakeNotifier) NotifyComment(_ context.Context, commentID, requestedBy uint) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, commentID)
	jobID := "job-" + strings.Repeat("x", len(f.comments))
	f.records[jobID] = &jobs.Record{
		JobID:       jobID,
		Operation:   jobs.OperationCommentNotify,
		Status:      jobs.StatusQueued,
		RequestedBy: requestedBy,
	}
	return jobID, nil
}

func (f *fakeNotifier) GetRecord(_ context.Context, jobID string) (*jobs.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[jobID], nil
}

type testEnv struct {
	t      *testing.T
	store  *storage.Store
	server *Server
	router *gin.Engine
}

func newTestEnv(t *testing.T, notifier Notifier) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.Open(filepath.Join(t.TempDir(), "blog.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		GinMode:                gin.TestMode,
		SiteURL:                "http://blog.test",
		SessionMaxAgeHours:     12,
		DatabasePath:           "unused",
		PasswordHashIterations: 1000,
		ContactEmail:           "owner@blog.example",
		MailProvider:           config.MailProviderLog,
	}
	manager := auth.NewManager(cfg, store, logger)
	server, err := NewServer(cfg, store, manager, notifier, logger)
	require.NoError(t, err)
	server.now = func() time.Time { return fixedNow }

	return &testEnv{t: t, store: store, server: server, router: server.Router()}
}

// client はブラウザのようにクッキーを保持し、直近ページの CSRF トークンをフォームに添えます。
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
	header  http.Header
	csrf    string
}

func (e *testEnv) newClient() *client {
	return &client{env: e, cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	for k, v := range cl.header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	cl.env.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		cl.cookies[c.Name] = c
	}
	if m := csrfPattern.FindStringSubmatch(rec.Body.String()); m != nil {
		cl.csrf = m[1]
	}
	return rec
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// submit はページを取得してからフォームを送信します。
func (cl *client) submit(path string, form url.Values) *httptest.ResponseRecorder {
	cl.get(path)
	return cl.post(path, form)
}

func (cl *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	values := url.Values{}
	for k, v := range form {
		values[k] = v
	}
	if values.Get(auth.CSRFFieldName) == "" && cl.csrf != "" {
		values.Set(auth.CSRFFieldName, cl.csrf)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) register(email, password, name string) *httptest.ResponseRecorder {
	return cl.submit("/register", url.Values{"email": {email}, "password": {password}, "name": {name}})
}

func (cl *client) login(email, password string) *httptest.ResponseRecorder {
	return cl.submit("/login", url.Values{"email": {email}, "password": {password}})
}

func (cl *client) createPost(title string) *httptest.ResponseRecorder {
	return cl.submit("/new-post", url.Values{
		"title":    {title},
		"subtitle": {"A subtitle"},
		"img_url":  {"https://images.example/cover.jpg"},
		"body":     {"<p>Body of " + title + "</p>"},
	})
}
