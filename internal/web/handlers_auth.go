package web

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-forge/internal/auth"
	"github.com/yourusername/blog-forge/internal/forms"
	"github.com/yourusername/blog-forge/internal/storage"
)

const (
	msgEmailRegistered = "Email already registered, login instead."
	msgUnknownEmail    = "That email does not exist, try registering."
	msgWrongPassword   = "Wrong password, try again."
	msgLoginLocked     = "Too many failed login attempts, try again later."
)

func (s *Server) register(c *gin.Context) {
	form := &forms.RegisterForm{}
	if c.Request.Method != http.MethodPost {
		s.render(c, http.StatusOK, pageRegister, &viewData{Title: "Register", Form: form})
		return
	}

	if err := forms.Bind(c, form); err != nil {
		s.logger.WithError(err).Debug("register form bind failed")
	}
	result := forms.Validate(form)
	if !result.OK() {
		s.render(c, http.StatusOK, pageRegister, &viewData{Title: "Register", Form: form, Errors: result})
		return
	}

	ctx := c.Request.Context()
	existing, err := s.store.FindUserByEmail(ctx, form.Email)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if existing != nil {
		s.flash(c, msgEmailRegistered)
		s.render(c, http.StatusOK, pageRegister, &viewData{Title: "Register", Form: form})
		return
	}

	digest, err := s.auth.HashPassword(form.Password)
	if err != nil {
		s.serverError(c, err)
		return
	}
	user := &storage.User{Email: form.Email, Password: digest, Name: form.Name}
	if err := s.store.CreateUser(ctx, user); err != nil {
		s.serverError(c, err)
		return
	}
	if err := s.auth.LogIn(c, user); err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) login(c *gin.Context) {
	form := &forms.LoginForm{}
	if c.Request.Method != http.MethodPost {
		s.render(c, http.StatusOK, pageLogin, &viewData{Title: "Log In", Form: form})
		return
	}

	if err := forms.Bind(c, form); err != nil {
		s.logger.WithError(err).Debug("login form bind failed")
	}

	ip := c.ClientIP()
	if wait, err := s.auth.CheckLock(ip); errors.Is(err, auth.ErrLocked) {
		// Retry-After は秒数で返す
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		s.flash(c, msgLoginLocked)
		s.render(c, http.StatusTooManyRequests, pageLogin, &viewData{Title: "Log In", Form: form})
		return
	}

	result := forms.Validate(form)
	if !result.OK() {
		s.render(c, http.StatusOK, pageLogin, &viewData{Title: "Log In", Form: form, Errors: result})
		return
	}

	user, err := s.store.FindUserByEmail(c.Request.Context(), form.Email)
	if err != nil {
		s.serverError(c, err)
		return
	}
	switch {
	case user == nil:
		s.auth.RecordFailure(ip)
		s.flash(c, msgUnknownEmail)
	case !s.auth.VerifyPassword(user.Password, form.Password):
		s.auth.RecordFailure(ip)
		s.flash(c, msgWrongPassword)
	default:
		s.auth.ResetAttempts(ip)
		if err := s.auth.LogIn(c, user); err != nil {
			s.serverError(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	s.render(c, http.StatusOK, pageLogin, &viewData{Title: "Log In", Form: form})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.auth.LogOut(c); err != nil {
		s.serverError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
