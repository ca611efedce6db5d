package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"maintenance-planner-backend/internal/planner"
	"maintenance-planner-backend/internal/store"
)

// CompleteSchedule handles POST /api/maintenance-plans/:id/complete.
func (h *Handler) CompleteSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	upload, closeFn, ok := h.formFile(c, "attachment", "file")
	if !ok {
		return
	}
	defer closeFn()

	sched, err := h.planner.Complete(c.Request.Context(), id, c.PostForm("remark"), upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponse(sched, nil))
}

// UploadChecksheet handles POST /api/maintenance-plans/:id/checksheet.
func (h *Handler) UploadChecksheet(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	upload, closeFn, ok := h.formFile(c, "file", "checksheet")
	if !ok {
		return
	}
	defer closeFn()

	sched, err := h.planner.AttachChecksheet(c.Request.Context(), id, upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponse(sched, nil))
}

// DownloadChecksheet handles GET /api/maintenance-plans/:id/checksheet.
func (h *Handler) DownloadChecksheet(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	file, err := h.planner.ChecksheetFile(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.FileAttachment(file.Path, file.Name)
}

// DeleteChecksheet handles DELETE /api/maintenance-plans/:id/checksheet.
func (h *Handler) DeleteChecksheet(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sched, err := h.planner.RemoveChecksheet(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponse(sched, nil))
}

// DownloadCompletionAttachment handles GET /api/maintenance-plans/:id/completion-attachment.
func (h *Handler) DownloadCompletionAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	file, err := h.planner.CompletionAttachmentFile(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.FileAttachment(file.Path, file.Name)
}

// formFile reads the first present multipart file among fields. A missing
// file yields a nil upload so the planner reports the validation error.
func (h *Handler) formFile(c *gin.Context, fields ...string) (*planner.Upload, func(), bool) {
	noop := func() {}
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	var header *multipart.FileHeader
	for _, field := range fields {
		fh, err := c.FormFile(field)
		if err == nil {
			header = fh
			break
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return nil, noop, false
		}
		if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			h.fail(c, store.Invalid(field, "could not read upload: %v", err))
			return nil, noop, false
		}
	}
	if header == nil {
		return nil, noop, true
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return nil, noop, false
	}
	return &planner.Upload{Name: header.Filename, Size: header.Size, Body: f}, func() { f.Close() }, true
}
