package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "timedesk/internal/log"
	"timedesk/internal/model"
)

// cacheMeta is the HTTP validator state of one cached URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Format       Format    `json:"format"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Remote fetches records over HTTP with conditional requests and a disk
// cache. When the server is unreachable or answers with an error, the last
// cached body is used.
type Remote struct {
	URL      string
	client   *http.Client
	cacheDir string
}

func NewRemote(rawURL, cacheDir string) *Remote {
	if cacheDir == "" {
		cacheDir = "./var/events-cache"
	}
	return &Remote{
		URL:      rawURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

func (r *Remote) Name() string { return redactURL(r.URL) }

func (r *Remote) Load(ctx context.Context, opts DecodeOptions) ([]model.Record, error) {
	body, format, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	records, err := Decode(format, body, opts)
	if err != nil {
		return nil, err
	}
	appLog.Info("events loaded", "source", r.Name(), "format", string(format), "records", len(records))
	return records, nil
}

func (r *Remote) fetch(ctx context.Context) ([]byte, Format, error) {
	if r.URL == "" {
		return nil, "", errors.New("source: remote URL is empty")
	}

	dir := r.cachePath()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, "", err
	}
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("events fetch failed, using cached body", err, "source", r.Name())
			return cached, meta.Format, nil
		}
		return nil, "", fmt.Errorf("source: fetch %s: %w", r.Name(), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", err
		}
		format := r.formatOf(resp)
		next := cacheMeta{
			URL:          r.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Format:       format,
		}
		if err := saveCache(dir, next, body); err != nil {
			appLog.Error("events cache save failed", err, "source", r.Name())
		}
		appLog.Debug("events fetched", "source", r.Name(), "bytes", len(body))
		return body, format, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, "", errors.New("source: 304 Not Modified without a cached body")
		}
		appLog.Debug("events not modified, using cache", "source", r.Name())
		return cached, meta.Format, nil

	default:
		if len(cached) > 0 {
			appLog.Error("events fetch non-OK, using cached body", errors.New(resp.Status),
				"source", r.Name(), "status", resp.StatusCode)
			return cached, meta.Format, nil
		}
		return nil, "", fmt.Errorf("source: fetch %s: %s", r.Name(), resp.Status)
	}
}

func (r *Remote) formatOf(resp *http.Response) Format {
	if f, ok := FormatFromContentType(resp.Header.Get("Content-Type")); ok {
		return f
	}
	if u, err := url.Parse(r.URL); err == nil {
		if f, err := FormatFromPath(u.Path); err == nil {
			return f
		}
	}
	return FormatJSON
}

func (r *Remote) cachePath() string {
	sum := sha256.Sum256([]byte(r.URL))
	return filepath.Join(r.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(dir string, meta cacheMeta, body []byte) error {
	// Body first so the metadata never points at a missing body.
	if err := os.WriteFile(filepath.Join(dir, "body"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host so tokens in paths or queries never
// reach the logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "remote://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
