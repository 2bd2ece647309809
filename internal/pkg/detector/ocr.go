package detector

import (
	"context"
	"strconv"

	"videomod/internal/pkg/filter"

	"github.com/go-kratos/kratos/v2/log"
)

// OCRProcessor calls the OCR model server, which extracts text from one
// sampled frame per second, and screens the extracted text against the
// restricted-term matcher.
type OCRProcessor struct {
	client  *modelClient
	matcher *filter.Matcher // nil disables term screening
}

// NewOCRProcessor creates an OCR detector. matcher may be nil.
func NewOCRProcessor(config ClientConfig, matcher *filter.Matcher, logger log.Logger) *OCRProcessor {
	return &OCRProcessor{
		client:  newModelClient(config, logger),
		matcher: matcher,
	}
}

func (p *OCRProcessor) Kind() Kind { return KindOCR }

type ocrResponse struct {
	// Text is keyed by sampled second offset; empty strings are valid.
	Text map[string]string `json:"text"`
}

// Evaluate extracts per-second text from the video.
func (p *OCRProcessor) Evaluate(ctx context.Context, videoPath string) (*Result, error) {
	var resp ocrResponse
	req := map[string]string{"video_path": videoPath}
	if err := p.client.postJSON(ctx, videoPath, "/v1/ocr", req, &resp); err != nil {
		return nil, err
	}

	report := &OCRReport{TextBySecond: make(map[int]string, len(resp.Text))}
	for secStr, text := range resp.Text {
		sec, err := strconv.Atoi(secStr)
		if err != nil {
			return nil, Errorf(ErrDecode, "bad second offset %q in OCR response", secStr)
		}
		report.TextBySecond[sec] = text

		if p.matcher != nil && text != "" {
			for _, m := range p.matcher.FindAll(text) {
				report.FlaggedTerms = append(report.FlaggedTerms, TermMatch{
					Term:     m.Term,
					Category: m.Category,
					Second:   sec,
				})
			}
		}
	}

	return &Result{Kind: KindOCR, OCR: report}, nil
}
