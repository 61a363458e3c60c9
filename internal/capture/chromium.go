package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Defaults match the 1200x630 social card size.
const (
	DefaultWidth      = 1200
	DefaultHeight     = 630
	DefaultTimeoutSec = 20
)

// ReadySelector is what a page must expose once it has finished rendering:
//
//	<body data-ready="true">
//
// The element must generate a box; display:contents never becomes visible.
const ReadySelector = `[data-ready="true"]`

// Renderer turns a URL into a PNG image.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// Options defines viewport and time limits for a capture.
type Options struct {
	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds a whole capture. If zero, DefaultTimeoutSec is used.
	Timeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o
}

// ChromeRenderer screenshots pages with a headless Chromium driven by
// chromedp. Each Render launches its own browser tab.
type ChromeRenderer struct {
	opts Options
}

func NewChromeRenderer(opts Options) *ChromeRenderer {
	return &ChromeRenderer{opts: opts.withDefaults()}
}

// Render navigates to url, waits for ReadySelector to be visible and returns
// a viewport-sized PNG.
func (r *ChromeRenderer) Render(parentCtx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("capture: URL is required")
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(r.opts.Width), int64(r.opts.Height)),
		chromedp.Navigate(url),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let web fonts finish painting.
		chromedp.Sleep(250 * time.Millisecond),
		chromedp.CaptureScreenshot(&png),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return png, nil
}

// CaptureToFile renders url with r and writes the PNG to path.
func CaptureToFile(ctx context.Context, r Renderer, url, path string) error {
	if path == "" {
		return fmt.Errorf("capture: output path is required")
	}
	png, err := r.Render(ctx, url)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
