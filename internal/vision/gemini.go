package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/lildude/fittrack/internal/client"
	"github.com/lildude/fittrack/internal/workout"
)

// GeminiBaseURL is the Google generative language API endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com"

const geminiModel = "gemini-2.5-flash"

const extractionPrompt = `You are given the OCR text of a fitness app workout screenshot, plus the screenshot itself.
Extract the workout details and respond with ONLY a JSON object, no prose, using these keys:
date (YYYY-MM-DD), workoutType, workoutTime (H:MM:SS), elapsedTime, distanceKm (number),
activeKcal (number), totalKcal (number), elevationGainM (number), avgPace (e.g. 5'30"/km),
avgHeartRateBpm (number), effortLevel (1-10), effortDescription, and splits as an array of
{splitNumber, time, pace, heartRateBpm}. Omit or zero any field the screenshot does not show.

OCR text:
`

// Models wrap their JSON in prose or markdown fences; pull out the outermost
// object before unmarshalling.
var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// GeminiExtractor extracts workout fields from screenshots with the Gemini
// multimodal API.
type GeminiExtractor struct {
	rc     *client.Client
	apiKey string
}

// NewGeminiExtractor builds an extractor from the GEMINI_API_KEY environment
// variable. baseURL is overridable for tests; pass "" for the real API.
func NewGeminiExtractor(baseURL string) (*GeminiExtractor, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, &workout.ExtractionError{Msg: "GEMINI_API_KEY is not set"}
	}
	if baseURL == "" {
		baseURL = GeminiBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &GeminiExtractor{rc: client.NewClient(u, nil), apiKey: apiKey}, nil
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ExtractWorkout sends the OCR text and image to Gemini and parses the JSON
// object out of its reply.
func (g *GeminiExtractor) ExtractWorkout(ctx context.Context, ocrText string, image []byte) (*Extraction, error) {
	parts := []geminiPart{{Text: extractionPrompt + ocrText}}
	if len(image) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiBlobPart{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(image),
		}})
	}

	body := &geminiRequest{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenConfig{Temperature: 0.1},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", geminiModel, url.QueryEscape(g.apiKey))
	req, err := g.rc.NewRequest(ctx, "POST", path, body)
	if err != nil {
		return nil, err
	}

	var resp geminiResponse
	if _, err := g.rc.Do(req, &resp); err != nil {
		return nil, &workout.ExtractionError{Msg: "gemini request failed", Err: err}
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &workout.ExtractionError{Msg: "gemini returned no candidates"}
	}

	raw := jsonObjectRe.FindString(resp.Candidates[0].Content.Parts[0].Text)
	if raw == "" {
		return nil, &workout.ExtractionError{Msg: "no JSON object in gemini response"}
	}

	ext := &Extraction{}
	if err := json.Unmarshal([]byte(raw), ext); err != nil {
		return nil, &workout.ExtractionError{Msg: "gemini response is not valid workout JSON", Err: err}
	}
	return ext, nil
}
