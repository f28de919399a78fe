package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/transcriptgpa/internal/app/models"
	"github.com/yigit/transcriptgpa/internal/pkg/apperrors"
)

// Document is one uploaded file.
type Document struct {
	Name string
	Data []byte
}

// OCREngine recognizes text in an image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// PDFTextReader returns the embedded text layer of a PDF.
type PDFTextReader func(ctx context.Context, data []byte) (string, error)

// ErrOCRDisabled is reported for image uploads when no OCR engine is configured.
var ErrOCRDisabled = errors.New("image text recognition is disabled")

var extensionKinds = map[string]models.DocumentKind{
	".pdf":  models.DocumentPDF,
	".png":  models.DocumentImage,
	".jpg":  models.DocumentImage,
	".jpeg": models.DocumentImage,
	".tif":  models.DocumentImage,
	".tiff": models.DocumentImage,
	".bmp":  models.DocumentImage,
	".gif":  models.DocumentImage,
	".webp": models.DocumentImage,
	".txt":  models.DocumentText,
	".text": models.DocumentText,
	".csv":  models.DocumentCSV,
	".json": models.DocumentJSON,
}

// DetectKind classifies a document by extension, then by content sniffing.
func DetectKind(name string, data []byte) (models.DocumentKind, error) {
	if kind, ok := extensionKinds[strings.ToLower(filepath.Ext(name))]; ok {
		return kind, nil
	}

	ct := http.DetectContentType(data)
	switch {
	case ct == "application/pdf":
		return models.DocumentPDF, nil
	case strings.HasPrefix(ct, "image/"):
		return models.DocumentImage, nil
	case strings.HasPrefix(ct, "text/plain"):
		return models.DocumentText, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", apperrors.ErrUnsupportedDocument, name, ct)
}

// TextAcquirer turns unstructured documents into text using the configured
// capabilities.
type TextAcquirer struct {
	OCR         OCREngine
	PDF         PDFTextReader
	Concurrency int
	// Timeout bounds each document; zero means no limit.
	Timeout time.Duration
	Log     zerolog.Logger
}

// Acquisition is the text of one document, or why there is none.
type Acquisition struct {
	Text string
	Err  error
}

// AcquireAll reads the text of every non-structured document concurrently. A failed
// capability leaves that document without text; it never fails the batch. Only
// context cancellation is returned as an error.
func (a *TextAcquirer) AcquireAll(ctx context.Context, docs []Document, kinds []models.DocumentKind) ([]Acquisition, error) {
	out := make([]Acquisition, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	limit := a.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := range docs {
		if kinds[i].Structured() {
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := a.acquire(gctx, docs[i], kinds[i])
			if err != nil {
				a.Log.Warn().Err(err).Str("file", docs[i].Name).Str("kind", string(kinds[i])).Msg("Text acquisition failed")
			}
			out[i] = Acquisition{Text: text, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, ctx.Err()
}

func (a *TextAcquirer) acquire(ctx context.Context, doc Document, kind models.DocumentKind) (string, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	switch kind {
	case models.DocumentText:
		return string(doc.Data), nil
	case models.DocumentPDF:
		if a.PDF == nil {
			return "", fmt.Errorf("%w: no pdf reader", apperrors.ErrUnsupportedDocument)
		}
		return a.PDF(ctx, doc.Data)
	case models.DocumentImage:
		if a.OCR == nil {
			return "", ErrOCRDisabled
		}
		return a.OCR.Recognize(ctx, doc.Data)
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedDocument, kind)
	}
}
