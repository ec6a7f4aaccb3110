package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
)

const maxUploadBytes = 32 << 20

type uploadedFile struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Upload stages multipart documents and returns the keys the process
// endpoint takes in file_paths. Filenames are flattened to safe staging
// keys, so clients must carry the returned key, not the original name.
func (a *API) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	staged := make([]uploadedFile, 0, len(files))
	for _, hdr := range files {
		f, err := hdr.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("open %s: %v", hdr.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read %s: %v", hdr.Filename, err))
			return
		}

		key := docstore.SafeKey(hdr.Filename)
		if err := a.docs.Put(r.Context(), key, content); err != nil {
			a.lg.Error().Err(err).Str("file", hdr.Filename).Msg("staging upload failed")
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("stage %s: %v", hdr.Filename, err))
			return
		}
		staged = append(staged, uploadedFile{Key: key, Name: hdr.Filename, Size: hdr.Size})
	}

	a.lg.Info().Int("count", len(staged)).Msg("documents staged")
	writeJSON(w, http.StatusOK, map[string]any{
		"files": staged,
		"count": len(staged),
	})
}
