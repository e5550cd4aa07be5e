package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parley-hq/parley/internal/api"
)

type ArchiveService interface {
	UploadURL(ctx context.Context, meetingID string) (string, error)
	DownloadURL(ctx context.Context, meetingID string) (string, error)
}

// ArchiveHandler serves presigned URLs for the transcript archive. The
// archive is optional; without one these endpoints answer 501.
type ArchiveHandler struct {
	archive ArchiveService
}

func NewArchiveHandler(archive ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

type ArchiveURLResponse struct {
	URL string `json:"url"`
}

func (h *ArchiveHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		api.Error(w, http.StatusNotImplemented, "transcript archive not configured")
		return
	}

	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meetingID is required")
		return
	}

	url, err := h.archive.UploadURL(r.Context(), meetingID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ArchiveURLResponse{URL: url})
}

func (h *ArchiveHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		api.Error(w, http.StatusNotImplemented, "transcript archive not configured")
		return
	}

	meetingID := chi.URLParam(r, "meetingID")
	if meetingID == "" {
		api.Error(w, http.StatusBadRequest, "meetingID is required")
		return
	}

	url, err := h.archive.DownloadURL(r.Context(), meetingID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ArchiveURLResponse{URL: url})
}
