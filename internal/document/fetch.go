package document

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

const (
	cacheEnvVar        = "PEEK_CACHE_DIR"
	cacheSubdir        = "peek/documents"
	cacheTTL           = 24 * time.Hour
	defaultHTTPTimeout = 90 * time.Second
)

// fetchCache keeps downloaded documents on disk and revalidates them with
// conditional requests. Interrupted downloads resume with a Range request.
type fetchCache struct {
	dir    string
	client *http.Client
}

// cachedFile is the set of files one URL occupies in the cache directory.
type cachedFile struct {
	body string
	meta string
	part string
}

type fetchMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"lastModified,omitempty"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

// validator is what If-Range accepts: the ETag when there is one.
func (m fetchMeta) validator() string {
	if m.ETag != "" {
		return m.ETag
	}
	return m.LastModified
}

var errNotModified = errors.New("not modified")

func newFetchCache(dir string, client *http.Client) (*fetchCache, error) {
	if dir == "" {
		dir = os.Getenv(cacheEnvVar)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("document cache: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &fetchCache{dir: dir, client: client}, nil
}

// Fetch returns a local path holding the body of rawURL. A stale copy is
// served when revalidation fails.
func (c *fetchCache) Fetch(ctx context.Context, rawURL string) (string, error) {
	f := c.entry(rawURL)
	info, statErr := os.Stat(f.body)
	haveCopy := statErr == nil && info.Size() > 0
	if haveCopy && time.Since(info.ModTime()) < cacheTTL {
		return f.body, nil
	}

	var meta fetchMeta
	if haveCopy {
		meta, _ = readMeta(f.meta)
	}
	err := c.refresh(ctx, rawURL, f, meta, haveCopy)
	switch {
	case err == nil:
		return f.body, nil
	case errors.Is(err, errNotModified):
		meta.CachedAt = time.Now().UTC()
		_ = writeMeta(f.meta, meta)
		now := time.Now()
		_ = os.Chtimes(f.body, now, now)
		return f.body, nil
	case haveCopy:
		return f.body, nil
	}
	return "", err
}

// refresh downloads rawURL into f. It returns errNotModified when the server
// confirms the copy on disk.
func (c *fetchCache) refresh(ctx context.Context, rawURL string, f cachedFile, meta fetchMeta, conditional bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if conditional {
		setIfPresent(req.Header, "If-None-Match", meta.ETag)
		setIfPresent(req.Header, "If-Modified-Since", meta.LastModified)
	}
	resumeFrom := fileSize(f.part)
	if resumeFrom > 0 {
		if m, err := readMeta(f.meta); err == nil {
			meta = m
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
		setIfPresent(req.Header, "If-Range", meta.validator())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if conditional {
			return errNotModified
		}
		return fmt.Errorf("download %s: unexpected 304", rawURL)
	case http.StatusOK:
		return c.store(resp, f, false)
	case http.StatusPartialContent:
		return c.store(resp, f, resumeFrom > 0)
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("download %s: %s (%s)", rawURL, resp.Status, snippet)
}

// store writes the response into the partial file, then moves it over the
// body so readers never see a half written document.
func (c *fetchCache) store(resp *http.Response, f cachedFile, resume bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if resume {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	out, err := os.OpenFile(f.part, flags, 0o644)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(out, resp.Body)
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return copyErr
	}
	if err := os.Rename(f.part, f.body); err != nil {
		return err
	}
	size := fileSize(f.body)
	return writeMeta(f.meta, fetchMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
		Size:         size,
	})
}

// entry keeps the URL's extension on the body file so PDFs are detected by
// name as well as by content.
func (c *fetchCache) entry(rawURL string) cachedFile {
	sum := sha1.Sum([]byte(rawURL))
	key := filepath.Join(c.dir, hex.EncodeToString(sum[:]))
	ext := ".txt"
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	return cachedFile{body: key + ext, meta: key + ".meta", part: key + ".part"}
}

func fileSize(p string) int64 {
	info, err := os.Stat(p)
	if err != nil {
		return 0
	}
	return info.Size()
}

func setIfPresent(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

func readMeta(p string) (fetchMeta, error) {
	var meta fetchMeta
	data, err := os.ReadFile(p)
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}

func writeMeta(p string, meta fetchMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
