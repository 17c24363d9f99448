// Package files implements GPX and FIT file upload handlers.
package files

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lildude/fittrack/internal/database"
	"github.com/lildude/fittrack/internal/handlers/respond"
	"github.com/lildude/fittrack/internal/ingest"
	"github.com/lildude/fittrack/internal/middleware"
)

const maxBatchFiles = 10

var supportedExtensions = map[string]string{
	".gpx": "GPS Exchange Format",
	".fit": "Flexible and Interoperable Data Transfer",
}

// maxFileSize returns the per-file upload cap in bytes, 10MB unless
// MAX_FILE_SIZE overrides it.
func maxFileSize() int64 {
	if v, err := strconv.ParseInt(os.Getenv("MAX_FILE_SIZE"), 10, 64); err == nil && v > 0 {
		return v
	}
	return 10 << 20
}

// UploadHandler imports a single activity file from the "file" form field.
func UploadHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxFileSize()); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, name, err := readUpload(file, header)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	importer := ingest.NewImporter(db)
	wk, err := importer.ImportFile(userID, name, data)
	switch {
	case err == ingest.ErrDuplicate:
		respond.JSON(w, http.StatusOK, map[string]interface{}{
			"status":    ingest.StatusDuplicate,
			"workoutId": wk.ID,
		})
	case err != nil:
		slog.Error("file import failed", "file", name, "error", err)
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respond.JSON(w, http.StatusCreated, map[string]interface{}{
			"status":    ingest.StatusImported,
			"workoutId": wk.ID,
		})
	}
}

// UploadMultipleHandler imports up to 10 files from the "files" form field in
// one request. Per-file failures are reported in the result, not as an HTTP
// error.
func UploadMultipleHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxFileSize() * maxBatchFiles); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respond.Error(w, http.StatusBadRequest, "no files provided")
		return
	}
	if len(headers) > maxBatchFiles {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("too many files: maximum %d per request", maxBatchFiles))
		return
	}

	var batch []ingest.BatchFile
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "unable to read upload")
			return
		}
		data, name, err := readUpload(file, header)
		file.Close()
		if err != nil {
			respond.Error(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", header.Filename, err))
			return
		}
		batch = append(batch, ingest.BatchFile{Name: name, Data: data})
	}

	result := ingest.NewImporter(db).ImportBatch(userID, batch)
	respond.JSON(w, http.StatusOK, result)
}

// SupportedFormatsHandler lists the accepted file types.
func SupportedFormatsHandler(w http.ResponseWriter, r *http.Request) {
	type format struct {
		Extension   string `json:"extension"`
		Description string `json:"description"`
	}
	formats := []format{}
	for ext, desc := range supportedExtensions {
		formats = append(formats, format{Extension: ext, Description: desc})
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"formats":     formats,
		"maxFileSize": maxFileSize(),
		"maxFiles":    maxBatchFiles,
	})
}

// readUpload validates the extension and size, then spools the upload through
// a uniquely named file under UPLOAD_DIR so partially written uploads never
// collide. The spool file is always removed.
func readUpload(file multipart.File, header *multipart.FileHeader) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := supportedExtensions[ext]; !ok {
		return nil, "", fmt.Errorf("unsupported file type %q: only .gpx and .fit are accepted", ext)
	}
	if header.Size > maxFileSize() {
		return nil, "", fmt.Errorf("file exceeds the %d byte limit", maxFileSize())
	}

	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	spool := filepath.Join(dir, uuid.NewString()+ext)

	out, err := os.Create(spool)
	if err != nil {
		return nil, "", fmt.Errorf("creating spool file: %w", err)
	}
	defer os.Remove(spool)

	_, err = io.Copy(out, io.LimitReader(file, maxFileSize()+1))
	out.Close()
	if err != nil {
		return nil, "", fmt.Errorf("spooling upload: %w", err)
	}

	data, err := os.ReadFile(spool)
	if err != nil {
		return nil, "", fmt.Errorf("reading spooled upload: %w", err)
	}
	if int64(len(data)) > maxFileSize() {
		return nil, "", fmt.Errorf("file exceeds the %d byte limit", maxFileSize())
	}
	return data, header.Filename, nil
}
