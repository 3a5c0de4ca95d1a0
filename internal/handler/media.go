package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"connectly/internal/httputil"
	"connectly/internal/model"
	"connectly/internal/service"
)

type MediaHandler struct {
	mediaService *service.MediaService // nil when R2 is not configured
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// PresignPostUpload handles POST /api/posts/media/presign
// Returns a presigned URL for uploading post media directly to R2.
func (h *MediaHandler) PresignPostUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	if h.mediaService == nil {
		httputil.WriteServiceUnavailable(w, "Media storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB is plenty for JSON
	var req model.PresignPostUploadRequest
	if !httputil.DecodeAndValidate(w, r, &req) {
		return
	}

	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.FileSize > model.MaxPostMediaSize {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Media exceeds 10MB limit")
		return
	}

	res, err := h.mediaService.PresignPostUpload(r.Context(), req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		default:
			log.Printf("[ERROR] Presign handler: err=%v", err)
			httputil.WriteInternalError(w, "Failed to create upload URL")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
