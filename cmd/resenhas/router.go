package main

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"resenhas/pkg/auth"
	"resenhas/pkg/logging"
	"resenhas/pkg/validation"
)

var configureBinding sync.Once

func newRouter() *gin.Engine {
	configureBinding.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Configure(v)
		}
	})

	server := gin.New()
	server.Use(gin.Recovery(), logging.RequestID(), logging.AccessLog())
	server.MaxMultipartMemory = cfg.MaxUploadBytes + 1<<20

	server.GET("/healthz", healthCheck)
	server.Static(mediaPrefix(), cfg.MediaRoot)

	api := server.Group("/api", auth.Optional(tokens))

	authGroup := api.Group("/auth")
	authGroup.POST("/register/", register)
	authGroup.POST("/login/", login)
	authGroup.POST("/refresh/", refreshToken)
	authGroup.POST("/logout/", logout)
	authGroup.GET("/me/", auth.Required(), getMe)
	authGroup.PATCH("/me/", auth.Required(), updateMe)
	authGroup.PUT("/me/", auth.Required(), updateMe)
	authGroup.GET("/profile/:username/", auth.Required(), getPublicProfile)

	reviews := api.Group("/resenhas")
	reviews.GET("/", listReviews)
	reviews.GET("/:id/", getReview)
	reviews.POST("/", auth.Required(), createReview)
	reviews.PUT("/:id/", auth.Required(), updateReview)
	reviews.PATCH("/:id/", auth.Required(), updateReview)
	reviews.DELETE("/:id/", auth.Required(), deleteReview)
	reviews.POST("/:id/curtir/", auth.Required(), toggleReviewLike)
	reviews.POST("/:id/comentar/", auth.Required(), createComment)

	comments := api.Group("/comentarios", auth.Required())
	comments.GET("/:id/", getComment)
	comments.PUT("/:id/", updateComment)
	comments.PATCH("/:id/", updateComment)
	comments.DELETE("/:id/", deleteComment)
	comments.POST("/:id/curtir/", toggleCommentLike)

	messages := api.Group("/mensagens", auth.Required())
	messages.GET("/", listMessages)
	messages.POST("/", sendMessage)
	messages.GET("/conversa/", getConversation)

	notifications := api.Group("/notificacoes", auth.Required())
	notifications.GET("/", listNotifications)
	notifications.POST("/marcar_lidas/", markNotificationsRead)
	notifications.GET("/:id/", getNotification)
	notifications.DELETE("/:id/", deleteNotification)

	return server
}

func mediaPrefix() string {
	p := "/" + strings.Trim(cfg.MediaURL, "/")
	if p == "/" {
		return "/media"
	}
	return p
}

func withCORS(h http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", logging.RequestIDHeader},
		ExposedHeaders:   []string{logging.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(h)
}

func healthCheck(c *gin.Context) {
	if err := pingDB(); err != nil {
		logging.FromContext(c).Error("health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
