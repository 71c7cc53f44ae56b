package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/mediagate/internal/logger"
	"github.com/timmy/mediagate/internal/service"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Message      string   `json:"message"`
	Details      string   `json:"details,omitempty"`
	ValidOptions []string `json:"validOptions,omitempty"`
}

// MediaHandler handles the /api/media endpoints.
type MediaHandler struct {
	media *service.MediaService
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(media *service.MediaService) *MediaHandler {
	return &MediaHandler{media: media}
}

// GetUploadURL handles POST /api/media/getUploadUrl.
func (h *MediaHandler) GetUploadURL(c *gin.Context) {
	var req service.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	grant, err := h.media.IssueUploadURL(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// GetSignedURLs handles POST /api/media/getSignedUrls.
func (h *MediaHandler) GetSignedURLs(c *gin.Context) {
	var req service.SignedURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	urls, err := h.media.ResolveSignedURLs(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, urls)
}

// List handles GET /api/media/list.
// An unparsable limit is treated as unset.
func (h *MediaHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	listing, err := h.media.List(c.Request.Context(), &service.ListRequest{
		Prefix: c.Query("prefix"),
		Cursor: c.Query("cursor"),
		Limit:  limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Delete handles DELETE /api/media/delete?key=.
func (h *MediaHandler) Delete(c *gin.Context) {
	res, err := h.media.Delete(c.Request.Context(), c.Query("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteBatch handles POST /api/media/delete.
func (h *MediaHandler) DeleteBatch(c *gin.Context) {
	var req service.DeleteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.media.DeleteBatch(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MediaHandler) badRequest(c *gin.Context, err error) {
	logger.CtxWarn(c.Request.Context(), "Invalid request body: %v", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
}

// fail maps a service error to its status code and JSON body.
func (h *MediaHandler) fail(c *gin.Context, err error) {
	se := service.AsError(err)
	_ = c.Error(err)

	if se.Kind == service.KindValidation {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:      se.Message,
			ValidOptions: se.ValidOptions,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message: se.Message,
		Details: se.Details,
	})
}
