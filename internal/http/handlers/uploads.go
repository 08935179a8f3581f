package handlers

import (
	"io"
	"net/http"
)

// maxUploadBytes bounds reference-image uploads (the hosting service caps at
// 32 MB anyway).
const maxUploadBytes = 16 << 20

func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	if a.Uploads == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "image hosting not configured")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable upload")
		return
	}
	if len(data) > maxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds the size limit")
		return
	}

	url, err := a.Uploads.Upload(r.Context(), header.Filename, data)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("handler: upload failed")
		a.error(w, http.StatusBadGateway, "upstream", "image hosting rejected the upload")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"url": url})
}
