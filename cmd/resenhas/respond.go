package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"resenhas/pkg/apperr"
	"resenhas/pkg/auth"
	"resenhas/pkg/database"
	"resenhas/pkg/logging"
	"resenhas/pkg/presenter"
	"resenhas/pkg/validation"
)

func respondError(c *gin.Context, err error) {
	if v, ok := apperr.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "validation error", "errors": v.Fields})
		return
	}
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logging.FromContext(c).Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bind decodes the request body by content type and checks its `binding`
// tags. Malformed bodies and failed rules are reported as validation errors.
func bind(c *gin.Context, obj interface{}) bool {
	var err error
	switch {
	case c.Request.ContentLength == 0:
		err = binding.Validator.ValidateStruct(obj)
	case c.ContentType() == binding.MIMEMultipartPOSTForm, c.ContentType() == binding.MIMEPOSTForm:
		err = c.ShouldBindWith(obj, binding.Form)
	default:
		err = c.ShouldBindJSON(obj)
	}
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		respondError(c, validation.Errors(fieldErrs))
		return false
	}
	v := apperr.NewValidation()
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		field := typeErr.Field[strings.LastIndex(typeErr.Field, ".")+1:]
		v.Add(field, "Invalid value.")
	default:
		v.Add("non_field_errors", "Malformed request body.")
	}
	respondError(c, v)
	return false
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperr.ErrNotFound)
		return 0, false
	}
	return uint(id), true
}

// callerID returns the authenticated user; routes using it sit behind
// auth.Required.
func callerID(c *gin.Context) uint {
	id, _ := auth.UserID(c)
	return id
}

func viewer(c *gin.Context) presenter.Viewer {
	v := presenter.Anonymous(baseURL(c), cfg.MediaURL)
	if id, ok := auth.UserID(c); ok {
		v = v.As(id)
	}
	return v
}

func baseURL(c *gin.Context) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if c.Request.Host == "" {
		return ""
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + c.Request.Host
}

func pingDB() error {
	return database.Ping(db)
}
