// Package ocr recognizes text in uploaded transcript images with Tesseract.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine recognizes text in image bytes using gosseract. Each call uses its own
// client, so an Engine is safe for concurrent use.
type Engine struct {
	languages     []string
	variables     map[string]string
	clientFactory func() *gosseract.Client
}

// NewEngine builds an engine for the given Tesseract language packs ("eng" when empty).
func NewEngine(languages []string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{
		languages: languages,
		// transcripts are columnar; collapsing runs of spaces would merge title and credits
		variables:     map[string]string{"preserve_interword_spaces": "1"},
		clientFactory: gosseract.NewClient,
	}
}

// Recognize returns the plain text of a single image.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	for k, v := range e.variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return "", fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
