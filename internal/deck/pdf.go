// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package deck

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// ErrPDFDependencyMissing reports that no headless Chrome binary was found.
var ErrPDFDependencyMissing = errors.New("pdf export dependency missing")

// pdfTimeout bounds one print run. Overridden in tests.
var pdfTimeout = 60 * time.Second

var chromeBinaries = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// ChromeAvailable reports whether a headless Chrome binary is on PATH.
func ChromeAvailable() bool {
	for _, b := range chromeBinaries {
		if _, err := exec.LookPath(b); err == nil {
			return true
		}
	}
	return false
}

// PDFRenderer draws slides as HTML and prints them to PDF on Encode.
type PDFRenderer struct {
	*HTMLRenderer
	ctx context.Context
}

// NewPDFRenderer creates a PDF deck. ctx bounds the print run.
func NewPDFRenderer(ctx context.Context, title string) *PDFRenderer {
	return &PDFRenderer{HTMLRenderer: NewHTMLRenderer(title), ctx: ctx}
}

// Encode prints the HTML deck to a landscape 16:9 PDF.
func (p *PDFRenderer) Encode() ([]byte, error) {
	html, err := p.HTMLRenderer.Encode()
	if err != nil {
		return nil, err
	}
	return PrintPDF(p.ctx, html)
}

// PrintPDF converts an HTML document to PDF using headless Chrome.
func PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	if !ChromeAvailable() {
		return nil, fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	dataURL := "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(html)

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(true).
				WithPaperWidth(13.333).
				WithPaperHeight(7.5).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return pdf, nil
}

// NewRenderer returns a renderer for the export format. Unknown formats
// fall back to HTML.
func NewRenderer(ctx context.Context, format types.ExportFormat, title string) Renderer {
	if format == types.ExportPDF {
		return NewPDFRenderer(ctx, title)
	}
	return NewHTMLRenderer(title)
}

// Extension returns the artifact file extension for the export format.
func Extension(format types.ExportFormat) string {
	if format == types.ExportPDF {
		return "pdf"
	}
	return "html"
}

// MimeType returns the artifact content type for the export format.
func MimeType(format types.ExportFormat) string {
	if format == types.ExportPDF {
		return "application/pdf"
	}
	return "text/html; charset=utf-8"
}
