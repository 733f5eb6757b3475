// Package extract turns screenshot pixels into assignment signals: OCR
// text, vision classifications, path heuristics, and learned keyword
// patterns.
package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/asimorth/competitor-lens/internal/config"
)

// TextExtractor extracts visible text from screenshot image files.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// NewTextExtractor creates a TextExtractor based on config.
func NewTextExtractor(cfg config.OCRConfig) (TextExtractor, error) {
	switch cfg.Provider {
	case "tesseract", "":
		return NewTesseract(cfg.TesseractPath, cfg.Languages), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("extract: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("extract: unknown ocr provider %q", cfg.Provider)
	}
}

// BestEffort wraps a TextExtractor so that extraction failures degrade
// to empty text instead of failing the caller. Text signals are
// advisory; a screenshot with no text still flows through assignment.
type BestEffort struct {
	inner TextExtractor
}

// NewBestEffort wraps an extractor with failure tolerance.
func NewBestEffort(inner TextExtractor) *BestEffort {
	return &BestEffort{inner: inner}
}

func (b *BestEffort) ExtractText(ctx context.Context, imagePath string) (string, error) {
	if b.inner == nil {
		return "", nil
	}
	text, err := b.inner.ExtractText(ctx, imagePath)
	if err != nil {
		zap.L().Warn("text extraction failed, continuing without text",
			zap.String("path", imagePath),
			zap.Error(err))
		return "", nil
	}
	return text, nil
}
