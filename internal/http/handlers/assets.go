package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// AssetUpload stores one photo and returns its storage key. The key is later
// quoted back as asset_ref during the conversation.
func (a *App) AssetUpload(w http.ResponseWriter, r *http.Request) {
	// One extra MiB of headroom so an oversized upload is detected by the
	// conversation layer with a localized hint instead of a connection reset.
	limit := a.Config.MaxPhotoSizeBytes() + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	data, filename, err := readUpload(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if len(data) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "empty upload")
		return
	}

	key := fmt.Sprintf("uploads/%s%s", uuid.NewString(), uploadExtension(r, filename))
	stored, err := a.Blobs.Write(r.Context(), key, data)
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: asset write failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store asset")
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"asset_ref": stored,
		"bytes":     len(data),
	})
}

// readUpload accepts either a multipart form with a "file" field or a raw
// request body.
func readUpload(r *http.Request) ([]byte, string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("file field required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("upload too large or unreadable")
		}
		return data, header.Filename, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("upload too large or unreadable")
	}
	return data, "", nil
}

func uploadExtension(r *http.Request, filename string) string {
	if ext := strings.ToLower(path.Ext(filename)); ext != "" {
		return ext
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ".bin"
}
