package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"facematch-backend/internal/middleware"
	"facematch-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// multipart bodies are parsed with a memory ceiling; larger parts spill
// to temporary files
const multipartMemoryLimit = 32 << 20

// PhotoHandler handles event photo HTTP requests
type PhotoHandler struct {
	uploadService *services.UploadService
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(uploadService *services.UploadService) *PhotoHandler {
	return &PhotoHandler{
		uploadService: uploadService,
	}
}

// UploadPhotos handles POST /api/v1/events/{event_id}/photos
func (h *PhotoHandler) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	fileHeaders := r.MultipartForm.File["photos"]
	if len(fileHeaders) == 0 {
		respondError(w, "no files submitted", http.StatusBadRequest)
		return
	}

	files := make([]services.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := readMultipartFile(fh)
		if err != nil {
			respondError(w, "failed to read uploaded file", http.StatusBadRequest)
			return
		}
		files = append(files, f)
	}

	summary, err := h.uploadService.UploadEventImages(ctx, userID, eventID, files)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event_id", eventID).Msg("Bulk upload failed")
		respondError(w, err.Error(), statusFor(err))
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("event_id", eventID).
		Int("uploaded", summary.Uploaded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("Bulk upload finished")
	respondJSON(w, summary, http.StatusOK)
}

// ListPhotos handles GET /api/v1/events/{event_id}/photos
func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := chi.URLParam(r, "event_id")

	urls, err := h.uploadService.ListEventImages(ctx, eventID)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, map[string]interface{}{"photos": urls, "total": len(urls)}, http.StatusOK)
}

// UploadCover handles POST /api/v1/events/{event_id}/cover
func (h *PhotoHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	eventID := chi.URLParam(r, "event_id")

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	fileHeaders := r.MultipartForm.File["cover"]
	if len(fileHeaders) == 0 {
		respondError(w, "no cover file submitted", http.StatusBadRequest)
		return
	}

	f, err := readMultipartFile(fileHeaders[0])
	if err != nil {
		respondError(w, "failed to read uploaded file", http.StatusBadRequest)
		return
	}

	url, err := h.uploadService.UploadCover(ctx, eventID, f)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("event_id", eventID).Msg("Cover upload failed")
		respondError(w, err.Error(), statusFor(err))
		return
	}
	respondJSON(w, map[string]string{"cover_url": url}, http.StatusOK)
}

func readMultipartFile(fh *multipart.FileHeader) (services.UploadFile, error) {
	file, err := fh.Open()
	if err != nil {
		return services.UploadFile{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return services.UploadFile{}, err
	}

	return services.UploadFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
