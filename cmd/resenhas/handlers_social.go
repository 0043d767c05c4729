package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resenhas/pkg/auth"
	"resenhas/pkg/presenter"
	"resenhas/pkg/social"
)

func listReviews(c *gin.Context) {
	var actor *uint
	if id, ok := auth.UserID(c); ok {
		actor = &id
	}
	opts := social.ListOptions{
		OnlyMine: c.Query("only_mine") == "true",
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	reviews, comments, err := socialSvc.ListReviews(c.Request.Context(), actor, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Reviews(viewer(c), reviews, comments))
}

func getReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, comments, err := socialSvc.GetReview(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Review(viewer(c), *r, comments))
}

func createReview(c *gin.Context) {
	var in social.ReviewInput
	if !bind(c, &in) {
		return
	}
	r, err := socialSvc.CreateReview(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, presenter.Review(viewer(c), *r, nil))
}

func updateReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in social.ReviewInput
	if !bind(c, &in) {
		return
	}
	partial := c.Request.Method == http.MethodPatch
	r, comments, err := socialSvc.UpdateReview(c.Request.Context(), callerID(c), id, in, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Review(viewer(c), *r, comments))
}

func deleteReview(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := socialSvc.DeleteReview(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toggleReviewLike(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := socialSvc.ToggleReviewLike(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func createComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in social.CommentInput
	if !bind(c, &in) {
		return
	}
	comment, err := socialSvc.CreateComment(c.Request.Context(), callerID(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, presenter.Comment(viewer(c), *comment, nil))
}

func getComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	comment, related, err := socialSvc.GetComment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Comment(viewer(c), *comment, related))
}

func updateComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in social.CommentInput
	if !bind(c, &in) {
		return
	}
	partial := c.Request.Method == http.MethodPatch
	comment, related, err := socialSvc.UpdateComment(c.Request.Context(), callerID(c), id, in, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Comment(viewer(c), *comment, related))
}

func deleteComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := socialSvc.DeleteComment(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toggleCommentLike(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := socialSvc.ToggleCommentLike(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func listMessages(c *gin.Context) {
	msgs, err := socialSvc.ListMessages(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Messages(viewer(c), msgs))
}

func sendMessage(c *gin.Context) {
	var in social.MessageInput
	if !bind(c, &in) {
		return
	}
	m, err := socialSvc.SendMessage(c.Request.Context(), callerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, presenter.Message(viewer(c), *m))
}

func getConversation(c *gin.Context) {
	msgs, err := socialSvc.Conversation(c.Request.Context(), callerID(c), c.Query("user"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Messages(viewer(c), msgs))
}

func listNotifications(c *gin.Context) {
	list, err := socialSvc.ListNotifications(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Notifications(viewer(c), list))
}

func getNotification(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	n, err := socialSvc.GetNotification(c.Request.Context(), callerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, presenter.Notification(viewer(c), *n))
}

func deleteNotification(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := socialSvc.DeleteNotification(c.Request.Context(), callerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func markNotificationsRead(c *gin.Context) {
	if err := socialSvc.MarkAllRead(c.Request.Context(), callerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
