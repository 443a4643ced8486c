package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-forge/internal/auth"
	"github.com/yourusername/blog-forge/internal/forms"
	"github.com/yourusername/blog-forge/internal/storage"
)

const (
	msgLoginToComment = "You need to login or register to comment"
	msgDuplicateTitle = "A post with this title already exists."

	// DateLayout は記事の表示用日付の書式です（例: August 24, 2024）。
	DateLayout = "January 02, 2006"

	// JobIDHeader はコメント投稿後のリダイレクトで通知ジョブの ID を返すヘッダーです。
	JobIDHeader = "X-Job-Id"
)

func (s *Server) listPosts(c *gin.Context) {
	posts, err := s.store.ListPosts(c.Request.Context())
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.render(c, http.StatusOK, pageIndex, &viewData{Title: "Blog", Posts: posts})
}

func (s *Server) showPost(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.notFound(c)
		return
	}

	ctx := c.Request.Context()
	post, err := s.store.GetPost(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	form := &forms.CommentForm{}
	if c.Request.Method != http.MethodPost {
		s.render(c, http.StatusOK, pagePost, &viewData{Title: post.Title, Post: post, Form: form})
		return
	}

	if err := forms.Bind(c, form); err != nil {
		s.logger.WithError(err).Debug("comment form bind failed")
	}
	result := forms.Validate(form)
	if !result.OK() {
		s.render(c, http.StatusOK, pagePost, &viewData{Title: post.Title, Post: post, Form: form, Errors: result})
		return
	}

	user := auth.CurrentUser(c)
	if user == nil {
		s.flash(c, msgLoginToComment)
		s.redirect(c, auth.LoginPath)
		return
	}

	comment := &storage.Comment{PostID: post.ID, CommentatorID: user.ID, Text: form.Comment}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		s.serverError(c, err)
		return
	}

	if s.notifier != nil {
		jobID, err := s.notifier.NotifyComment(ctx, comment.ID, user.ID)
		if err != nil {
			s.logger.WithError(err).WithField("commentId", comment.ID).Warn("failed to enqueue comment notification")
		} else {
			c.Header(JobIDHeader, jobID)
		}
	}

	c.Redirect(http.StatusSeeOther, postPath(post.ID))
}

func (s *Server) newPost(c *gin.Context) {
	user, ok := s.auth.Require(c)
	if !ok {
		return
	}

	form := &forms.PostForm{}
	if c.Request.Method != http.MethodPost {
		s.render(c, http.StatusOK, pageMakePost, &viewData{Title: "New Post", Form: form})
		return
	}

	if err := forms.Bind(c, form); err != nil {
		s.logger.WithError(err).Debug("post form bind failed")
	}
	result := forms.Validate(form)
	if !result.OK() {
		s.render(c, http.StatusOK, pageMakePost, &viewData{Title: "New Post", Form: form, Errors: result})
		return
	}

	post := &storage.Post{
		AuthorID: user.ID,
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Date:     s.now().Format(DateLayout),
		Body:     form.Body,
		ImgURL:   form.ImgURL,
	}
	err := s.store.CreatePost(c.Request.Context(), post)
	if errors.Is(err, storage.ErrDuplicateTitle) {
		result.Add("title", msgDuplicateTitle)
		s.render(c, http.StatusOK, pageMakePost, &viewData{Title: "New Post", Form: form, Errors: result})
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) editPost(c *gin.Context) {
	if _, ok := s.auth.Require(c); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		s.notFound(c)
		return
	}

	ctx := c.Request.Context()
	post, err := s.store.GetPost(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}

	if c.Request.Method != http.MethodPost {
		form := &forms.PostForm{
			Title:    post.Title,
			Subtitle: post.Subtitle,
			ImgURL:   post.ImgURL,
			Body:     post.Body,
		}
		s.render(c, http.StatusOK, pageMakePost, &viewData{Title: "Edit Post", Form: form, Post: post, IsEdit: true})
		return
	}

	form := &forms.PostForm{}
	if err := forms.Bind(c, form); err != nil {
		s.logger.WithError(err).Debug("post form bind failed")
	}
	result := forms.Validate(form)
	if !result.OK() {
		s.render(c, http.StatusOK, pageMakePost, &viewData{Title: "Edit Post", Form: form, Post: post, IsEdit: true, Errors: result})
		return
	}

	_, err = s.store.UpdatePost(ctx, id, storage.PostFields{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		ImgURL:   form.ImgURL,
		Body:     form.Body,
	})
	switch {
	case errors.Is(err, storage.ErrDuplicateTitle):
		result.Add("title", msgDuplicateTitle)
		s.render(c, http.StatusOK, pageMakePost, &viewData{Title: "Edit Post", Form: form, Post: post, IsEdit: true, Errors: result})
	case errors.Is(err, storage.ErrNotFound):
		s.notFound(c)
	case err != nil:
		s.serverError(c, err)
	default:
		c.Redirect(http.StatusSeeOther, postPath(id))
	}
}

func (s *Server) deletePost(c *gin.Context) {
	if _, ok := s.auth.Require(c); !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		s.notFound(c)
		return
	}

	err := s.store.DeletePost(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.notFound(c)
		return
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func postPath(id uint) string {
	return fmt.Sprintf("/post/%d", id)
}
