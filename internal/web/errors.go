package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (s *Server) notFound(c *gin.Context) {
	s.renderError(c, http.StatusNotFound, "The page you are looking for does not exist.")
}

func (s *Server) forbidden(c *gin.Context) {
	s.renderError(c, http.StatusForbidden, "Your form has expired. Please go back, reload the page and try again.")
	c.Abort()
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("request failed")
	_ = c.Error(err)
	s.renderError(c, http.StatusInternalServerError, "Something went wrong on our side. Please try again later.")
	c.Abort()
}

func (s *Server) renderError(c *gin.Context, status int, message string) {
	s.render(c, status, pageError, &viewData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}
