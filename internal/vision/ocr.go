package vision

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// TesseractExtractor shells out to the tesseract binary. The TSV output
// carries a per-word confidence which is averaged into OCRResult.Confidence.
type TesseractExtractor struct {
	// Binary overrides the executable name, for tests.
	Binary string
}

func (t *TesseractExtractor) ExtractText(ctx context.Context, imagePath string) (OCRResult, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}

	cmd := exec.CommandContext(ctx, bin, imagePath, "stdout", "tsv")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return OCRResult{}, fmt.Errorf("tesseract: %w: %s", err, stderr.String())
	}

	return parseTSV(out.String()), nil
}

// parseTSV reads tesseract's tsv output: tab-separated rows where column 11
// is the word confidence and column 12 the text. Rows with confidence -1 are
// layout markers, not words.
func parseTSV(tsv string) OCRResult {
	var words []string
	var confSum, confCount int

	for i, line := range strings.Split(tsv, "\n") {
		if i == 0 { // header
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		words = append(words, text)
		confSum += int(conf)
		confCount++
	}

	res := OCRResult{Text: strings.Join(words, " ")}
	if confCount > 0 {
		res.Confidence = confSum / confCount
	}
	return res
}
