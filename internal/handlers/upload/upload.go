// Package upload implements the screenshot ingestion handler: OCR, AI field
// extraction and persistence of the resulting workout.
package upload

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lildude/fittrack/internal/database"
	"github.com/lildude/fittrack/internal/handlers/respond"
	"github.com/lildude/fittrack/internal/ingest"
	"github.com/lildude/fittrack/internal/middleware"
	"github.com/lildude/fittrack/internal/vision"
	"github.com/lildude/fittrack/internal/workout"
)

const maxImageSize = 10 << 20

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".heic": true,
}

// Handler processes screenshot uploads. The extractors are injected so tests
// can run without tesseract or a Gemini key.
type Handler struct {
	OCR vision.TextExtractor
	AI  vision.WorkoutExtractor
}

// NewHandler wires the production extractors. It fails when GEMINI_API_KEY
// is unset.
func NewHandler() (*Handler, error) {
	ai, err := vision.NewGeminiExtractor("")
	if err != nil {
		return nil, err
	}
	return &Handler{OCR: &vision.TesseractExtractor{}, AI: ai}, nil
}

// Screenshot accepts an image in the "image" form field, extracts the workout
// it shows and imports it.
func (h *Handler) Screenshot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	db, err := database.InitDB()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "no image provided")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageExtensions[ext] {
		respond.Error(w, http.StatusBadRequest, "unsupported image type")
		return
	}

	image, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil || int64(len(image)) > maxImageSize {
		respond.Error(w, http.StatusBadRequest, "unable to read image")
		return
	}

	// Clients that already ran OCR on-device can send the text along and
	// skip the server-side pass.
	var ocr vision.OCRResult
	if text := r.FormValue("ocrText"); text != "" {
		ocr = vision.OCRResult{Text: text, Confidence: 100}
	} else {
		// OCR reads from disk, so park the image under a unique name first.
		dir := os.Getenv("UPLOAD_DIR")
		if dir == "" {
			dir = os.TempDir()
		}
		imagePath := filepath.Join(dir, uuid.NewString()+ext)
		if err := os.WriteFile(imagePath, image, 0o600); err != nil {
			slog.Error("unable to write image", "error", err)
			respond.Error(w, http.StatusInternalServerError, "unable to store image")
			return
		}
		defer os.Remove(imagePath)

		ocr, err = h.OCR.ExtractText(r.Context(), imagePath)
		if err != nil {
			slog.Error("ocr failed", "error", err)
			respond.Error(w, http.StatusUnprocessableEntity, "could not read text from image")
			return
		}
	}

	ext2, err := h.AI.ExtractWorkout(r.Context(), ocr.Text, image)
	if err != nil {
		slog.Error("workout extraction failed", "error", err)
		respond.Error(w, http.StatusUnprocessableEntity, "could not extract workout details from image")
		return
	}

	meta := workout.ScreenshotMetadata{
		OCRConfidence:    ocr.Confidence,
		OriginalFilename: header.Filename,
		FileSize:         header.Size,
		MimeType:         header.Header.Get("Content-Type"),
	}
	rec, err := vision.Normalize(ext2, userID, meta)
	if err != nil {
		slog.Error("screenshot normalization failed", "error", err)
		respond.Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	wk, err := ingest.NewImporter(db).ImportRecord(rec)
	switch {
	case errors.Is(err, ingest.ErrDuplicate):
		respond.JSON(w, http.StatusOK, map[string]interface{}{
			"status":    ingest.StatusDuplicate,
			"workoutId": wk.ID,
		})
	case err != nil:
		slog.Error("screenshot import failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to save workout")
	default:
		respond.JSON(w, http.StatusCreated, map[string]interface{}{
			"status":        ingest.StatusImported,
			"workoutId":     wk.ID,
			"ocrConfidence": ocr.Confidence,
		})
	}
}
