package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// Defaults match the wide layout at its initial viewport.
const (
	DefaultWidth   = 1280
	DefaultHeight  = 900
	DefaultTimeout = 30 * time.Second
)

// readySelector is set on the page root once a layout has been rendered.
const readySelector = `[data-ready="true"]`

var (
	ErrNoURL    = errors.New("capture: URL is required")
	ErrNoOutput = errors.New("capture: OutputPath is required")
)

// Options defines one Chromium screenshot of the timeline page.
type Options struct {
	// URL of the page, e.g. "http://127.0.0.1:8080/". Credentials for
	// basic auth may be embedded in it.
	URL string

	// OutputPath receives the PNG.
	OutputPath string

	// Width and Height are the viewport in CSS pixels. Zero uses the defaults.
	Width  int
	Height int

	// FullPage captures the whole canvas instead of the visible viewport.
	FullPage bool

	// Timeout bounds the entire capture. Zero uses DefaultTimeout.
	Timeout time.Duration
}

func (o *Options) normalize() error {
	if o.URL == "" {
		return ErrNoURL
	}
	if o.OutputPath == "" {
		return ErrNoOutput
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// Snapshot launches a headless Chromium via chromedp, opens opts.URL, waits
// until the page reports a rendered layout and writes a PNG to
// opts.OutputPath.
func Snapshot(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	shot := chromedp.CaptureScreenshot(&png)
	if opts.FullPage {
		shot = chromedp.FullScreenshot(&png, 100)
	}
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let rotations and fonts paint.
		chromedp.Sleep(500 * time.Millisecond),
		shot,
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}
