package controllers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"urbanconnect-be/services"
	"urbanconnect-be/storage"
	"urbanconnect-be/utils"

	"github.com/gin-gonic/gin"
)

// MediaBackend is a media store that can also serve what it stores.
type MediaBackend interface {
	services.MediaStore
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type MediaController struct {
	media MediaBackend
}

func NewMediaController(media MediaBackend) *MediaController {
	return &MediaController{media: media}
}

// Upload stores one image under the before/ namespace and returns its URL.
func (mc *MediaController) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	data, contentType, err := utils.ReadUpload(fh, services.MaxImageBytes)
	if errors.Is(err, utils.ErrTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files can be uploaded"})
		return
	}

	url, err := mc.media.Store(c.Request.Context(), storage.Before, data, contentType)
	if err != nil {
		slog.Error("upload failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Serve streams a stored object by key.
func (mc *MediaController) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	rc, contentType, err := mc.media.Open(c.Request.Context(), key)
	if errors.Is(err, storage.ErrInvalidKey) || errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		slog.Error("open media", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
