package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"doclens/internal/model"
)

// uploadField is the multipart field carrying files; it may repeat.
const uploadField = "file"

// HandleProcess runs every uploaded file through the pipeline and returns
// one ProcessedDocument per part, in upload order. Per-file failures are
// reported inside the documents, so the status is 200 whenever the upload
// itself was readable.
func HandleProcess(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := uuid.New().String()
		w.Header().Set("X-Batch-ID", batchID)

		r.Body = http.MaxBytesReader(w, r.Body, app.maxUploadBytes())

		// Parse multipart form (32MB in memory, rest goes to temp files)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				WriteError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("upload exceeds %dMB", app.server.MaxUploadMB))
				return
			}
			WriteError(w, http.StatusBadRequest, "failed to parse multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		headers := r.MultipartForm.File[uploadField]
		if len(headers) == 0 {
			WriteError(w, http.StatusBadRequest, "missing file in upload")
			return
		}

		files := make([]model.UploadedFile, 0, len(headers))
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				WriteError(w, http.StatusBadRequest, "failed to read file "+fh.Filename)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				WriteError(w, http.StatusBadRequest, "failed to read file "+fh.Filename)
				return
			}
			files = append(files, model.UploadedFile{
				Name:     fh.Filename,
				MimeType: partMIME(fh),
				Size:     fh.Size,
				Data:     data,
			})
		}

		app.log.Info("[API] batch received",
			zap.String("batch_id", batchID),
			zap.Int("files", len(files)))
		docs := app.pipeline.ProcessFiles(r.Context(), files)
		WriteJSON(w, http.StatusOK, docs)
	}
}
