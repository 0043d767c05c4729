package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resenhas/pkg/accounts"
	"resenhas/pkg/apperr"
	"resenhas/pkg/auth"
	"resenhas/pkg/logging"
	"resenhas/pkg/presenter"
)

func register(c *gin.Context) {
	var in accounts.RegisterInput
	if !bind(c, &in) {
		return
	}
	u, err := accountSvc.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "username": u.Username, "email": u.Email})
}

func login(c *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username" binding:"required"`
		Password string `json:"password" form:"password" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	u, err := auth.Authenticate(c.Request.Context(), db, req.Username, req.Password)
	if err != nil {
		logging.FromContext(c).Info("login rejected", "username", req.Username)
		respondError(c, err)
		return
	}
	pair, err := tokens.IssuePair(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh" form:"refresh" binding:"required,notblank"`
}

func refreshToken(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	access, err := tokens.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func logout(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	if err := tokens.Revoke(c.Request.Context(), req.Refresh); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func getMe(c *gin.Context) {
	u, err := accountSvc.Me(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.User(viewer(c), *u))
}

// updateMe accepts JSON or a multipart form; the avatar file only arrives
// with the latter.
func updateMe(c *gin.Context) {
	var in accounts.UpdateInput
	if !bind(c, &in) {
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("avatar")
		if err == nil {
			f, err := fh.Open()
			if err != nil {
				respondError(c, apperr.Invalid("avatar", "The submitted file could not be read."))
				return
			}
			defer f.Close()
			in.Avatar = &accounts.Upload{
				Filename:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        f,
			}
		} else if err != http.ErrMissingFile {
			respondError(c, apperr.Invalid("avatar", "The submitted data was not a file."))
			return
		}
	}

	u, err := accountSvc.UpdateAccount(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.User(viewer(c), *u))
}

func getPublicProfile(c *gin.Context) {
	u, err := accountSvc.PublicProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.PublicUser(viewer(c), *u))
}
