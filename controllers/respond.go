package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"urbanconnect-be/middlewares"
	"urbanconnect-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// respondError writes the labelled error body for err. Unlabelled errors
// are logged and reported as a generic 500.
func respondError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		slog.Error("unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if se.Kind == services.ExternalServiceFault || se.Kind == services.PersistenceFault {
		slog.Warn("request failed", "path", c.FullPath(), "code", se.Code, "error", se)
	}
	_ = c.Error(err)
	c.JSON(se.HTTPStatus(), gin.H{
		"error":     se.Message,
		"code":      se.Code,
		"kind":      se.Kind,
		"retryable": se.Retryable(),
	})
}

// badRequest reports a malformed request as an InvalidInput caller fault.
func badRequest(c *gin.Context, msg string) {
	respondError(c, invalidInput(msg))
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		e := *services.ErrNotFound
		e.Message = "Invalid ID"
		respondError(c, &e)
		return primitive.NilObjectID, false
	}
	return id, true
}

func actor(c *gin.Context) *services.Actor {
	return middlewares.CurrentActor(c)
}
