package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/blog-forge/internal/auth"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.newClient().get("/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestRegisterThenLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()

	rec := cl.register("ann@x.io", "s3cret", "Ann")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, cl.get("/").Body.String(), `<span class="user">Ann</span>`)

	require.Equal(t, http.StatusSeeOther, cl.get("/logout").Code)
	assert.NotContains(t, cl.get("/").Body.String(), `<span class="user">`)

	rec = cl.login("ann@x.io", "s3cret")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, cl.get("/").Body.String(), `<span class="user">Ann</span>`)

	user, err := env.store.FindUserByEmail(context.Background(), "ann@x.io")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEqual(t, "s3cret", user.Password)
	assert.True(t, auth.VerifyPassword(user.Password, "s3cret"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusSeeOther, env.newClient().register("ann@x.io", "one", "Ann").Code)

	rec := env.newClient().register("ann@x.io", "two", "Impostor")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgEmailRegistered)

	count, err := env.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.newClient().register("not-an-email", "", "Ann")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email address.")
	assert.Contains(t, rec.Body.String(), "This field is required.")

	count, err := env.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	env.newClient().register("ann@x.io", "s3cret", "Ann")

	rec := env.newClient().login("nobody@x.io", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgUnknownEmail)

	cl := env.newClient()
	rec = cl.login("ann@x.io", "wrong")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgWrongPassword)
	assert.NotContains(t, cl.get("/").Body.String(), `<span class="user">`)
}

func TestLoginLockout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.newClient().register("ann@x.io", "s3cret", "Ann")

	cl := env.newClient()
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, cl.login("ann@x.io", "wrong").Code)
	}
	rec := cl.login("ann@x.io", "s3cret")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), msgLoginLocked)
}

func TestLoginLockoutIgnoresForwardedFor(t *testing.T) {
	env := newTestEnv(t, nil)
	env.newClient().register("ann@x.io", "s3cret", "Ann")

	cl := env.newClient()
	for i := 0; i < 5; i++ {
		cl.header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		require.Equal(t, http.StatusOK, cl.login("ann@x.io", "wrong").Code)
	}
	cl.header.Set("X-Forwarded-For", "10.0.0.99")
	assert.Equal(t, http.StatusTooManyRequests, cl.login("ann@x.io", "s3cret").Code)
}

func TestStoreFailureWhileLoadingUser(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	require.Equal(t, http.StatusSeeOther, cl.register("ann@x.io", "s3cret", "Ann").Code)

	require.NoError(t, env.store.Close())

	rec := cl.get("/new-post")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.NotContains(t, rec.Body.String(), auth.LoginRequiredMessage)
}

func TestCSRFRejectsForgedPost(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	cl.get("/login")

	rec := cl.post("/login", url.Values{"email": {"a@x.io"}, "password": {"x"}, auth.CSRFFieldName: {"forged"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	fresh := env.newClient()
	rec = fresh.post("/register", url.Values{"email": {"a@x.io"}, "password": {"x"}, "name": {"A"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProtectedPagesRedirectAnonymous(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/new-post", "/edit-post/1", "/delete/1"} {
		cl := env.newClient()
		rec := cl.get(path)
		require.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.Contains(t, cl.get("/login").Body.String(), auth.LoginRequiredMessage)
	}
}

func TestCreatePostSetsAuthor(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	cl.register("ann@x.io", "s3cret", "Ann")

	rec := cl.createPost("Hello World")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	posts, err := env.store.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "Ann", posts[0].Author.Name)
	assert.Equal(t, "August 04, 2024", posts[0].Date)

	body := cl.get("/").Body.String()
	assert.Contains(t, body, "Hello World")
	assert.Contains(t, body, "Posted by Ann on August 04, 2024")
}

func TestCreatePostValidationAndDuplicateTitle(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	cl.register("ann@x.io", "s3cret", "Ann")
	cl.createPost("Taken")

	rec := cl.createPost("Taken")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgDuplicateTitle)

	rec = cl.submit("/new-post", url.Values{"title": {"x"}, "subtitle": {"y"}, "img_url": {"not a url"}, "body": {"z"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid URL.")

	count, err := env.store.CountPosts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestShowPostNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	assert.Equal(t, http.StatusNotFound, cl.get("/post/999").Code)
	assert.Equal(t, http.StatusNotFound, cl.get("/post/abc").Code)
	assert.Equal(t, http.StatusNotFound, cl.get("/no/such/page").Code)
}

func TestAnonymousCommentIsRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	author := env.newClient()
	author.register("ann@x.io", "s3cret", "Ann")
	author.createPost("Hello")

	anon := env.newClient()
	rec := anon.submit("/post/1", url.Values{"comment": {"First!"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Contains(t, anon.get("/login").Body.String(), msgLoginToComment)

	count, err := env.store.CountComments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommentIsStoredAndNotified(t *testing.T) {
	notifier := newFakeNotifier()
	env := newTestEnv(t, notifier)
	author := env.newClient()
	author.register("ann@x.io", "s3cret", "Ann")
	author.createPost("Hello")

	reader := env.newClient()
	reader.register("bob@x.io", "pw", "Bob")
	rec := reader.submit("/post/1", url.Values{"comment": {"Nice post"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/post/1", rec.Header().Get("Location"))
	assert.Equal(t, "job-x", rec.Header().Get(JobIDHeader))

	body := reader.get("/post/1").Body.String()
	assert.Contains(t, body, "Nice post")
	assert.Contains(t, body, "Bob")
	assert.Equal(t, []uint{1}, notifier.comments)

	rec = reader.submit("/post/1", url.Values{"comment": {"  "}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	cl.register("ann@x.io", "s3cret", "Ann")
	cl.createPost("Draft")

	rec := cl.get("/edit-post/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Draft"`)
	assert.Contains(t, rec.Body.String(), `action="/edit-post/1"`)

	rec = cl.post("/edit-post/1", url.Values{
		"title":    {"Final"},
		"subtitle": {"Better subtitle"},
		"img_url":  {"https://images.example/new.jpg"},
		"body":     {"<p>Updated</p>"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/post/1", rec.Header().Get("Location"))

	post, err := env.store.GetPost(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Final", post.Title)
	assert.Equal(t, "August 04, 2024", post.Date)

	assert.Equal(t, http.StatusNotFound, cl.get("/edit-post/42").Code)
}

func TestDeletePostKeepsComments(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	cl.register("ann@x.io", "s3cret", "Ann")
	cl.createPost("Doomed")
	cl.submit("/post/1", url.Values{"comment": {"bye"}})

	rec := cl.get("/delete/1")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	assert.NotContains(t, cl.get("/").Body.String(), "Doomed")
	assert.Equal(t, http.StatusNotFound, cl.get("/post/1").Code)
	assert.Equal(t, http.StatusNotFound, cl.get("/delete/1").Code)

	comment, err := env.store.GetComment(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, comment.Post)
	assert.Equal(t, "bye", comment.Text)
}

func TestContactRedirectsToMailto(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()

	rec := cl.submit("/contact", url.Values{
		"name":         {"Ann Lee"},
		"email":        {"ann@x.io"},
		"phone_number": {"123"},
		"message":      {"Hi there & bye"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t,
		"mailto:owner@blog.example?subject=Message%20from%20Blog%20site&body=Name%3A%20Ann%20Lee%0AEmail%3A%20ann%40x.io%0APhone%3A123%0AMessage%3A%0AHi%20there%20%26%20bye",
		rec.Header().Get("Location"))
}

func TestStaticPages(t *testing.T) {
	env := newTestEnv(t, nil)
	cl := env.newClient()
	assert.Contains(t, cl.get("/about").Body.String(), "About Me")
	assert.Contains(t, cl.get("/contact").Body.String(), `name="phone_number"`)
}

func TestJobStatus(t *testing.T) {
	disabled := newTestEnv(t, nil)
	anon := disabled.newClient()
	assert.Equal(t, http.StatusUnauthorized, anon.get("/api/jobs/abc").Code)

	user := disabled.newClient()
	user.register("ann@x.io", "s3cret", "Ann")
	assert.Equal(t, http.StatusServiceUnavailable, user.get("/api/jobs/abc").Code)

	notifier := newFakeNotifier()
	env := newTestEnv(t, notifier)
	cl := env.newClient()
	cl.register("ann@x.io", "s3cret", "Ann")
	cl.createPost("Hello")
	cl.submit("/post/1", url.Values{"comment": {"self note"}})

	assert.Equal(t, http.StatusNotFound, cl.get("/api/jobs/unknown").Code)

	rec := cl.get("/api/jobs/job-x")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "job-x", body["jobId"])
	assert.Equal(t, "queued", body["status"])

	other := env.newClient()
	other.register("bob@x.io", "pw", "Bob")
	assert.Equal(t, http.StatusNotFound, other.get("/api/jobs/job-x").Code)
}

func TestMailtoEscape(t *testing.T) {
	assert.Equal(t, "a%20b%2Bc%0A", mailtoEscape("a b+c\n"))
}

func TestRendererFallsBackToErrorPage(t *testing.T) {
	r, err := newHTMLRenderer()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, r.Instance("missing.html", &viewData{Status: 418, Message: "teapot"}).Render(rec))
	assert.Contains(t, rec.Body.String(), "teapot")
}
