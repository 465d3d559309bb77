package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/time/rate"
)

const maxAssetSize = 10 << 20 // 10 MB

// imageTypes maps accepted media types to the extension used on disk.
var imageTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// canonicalExt folds extension spellings onto the imageTypes values.
func canonicalExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}

func allowedExt(ext string) bool {
	ext = canonicalExt(ext)
	for _, v := range imageTypes {
		if v == ext {
			return true
		}
	}
	return false
}

// payload is a downloaded or decoded asset before it is staged.
type payload struct {
	data []byte
	ext  string // from the declared media type, may be empty
}

// fetcher retrieves remote assets. Private and loopback hosts are refused
// unless allowPrivate is set. Downloads share one token bucket.
type fetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	allowPrivate bool
}

func newFetcher() *fetcher {
	f := &fetcher{limiter: rate.NewLimiter(rate.Every(time.Second), 3)}
	f.client = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return f.checkHost(req.URL.Hostname())
		},
	}
	return f
}

// checkHost rejects loopback, private, link-local (cloud metadata) and
// unspecified addresses.
func (f *fetcher) checkHost(host string) error {
	if f.allowPrivate {
		return nil
	}
	if host == "metadata.google.internal" || host == "localhost" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, err := net.LookupIP(host)
		if err != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // let http.Client report DNS failures
		}
		ips = resolved
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("blocked host: %s resolves to %s", host, ip)
		}
	}
	return nil
}

func (f *fetcher) get(ctx context.Context, rawURL string) (*payload, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", u.Scheme)
	}
	if err := f.checkHost(u.Hostname()); err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("download throttled: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, fmt.Errorf("file too large: exceeds %d bytes", maxAssetSize)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return &payload{data: data, ext: imageTypes[mediaType]}, nil
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) (*payload, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	mediaType, _, _ = strings.Cut(mediaType, ";")
	ext := imageTypes[strings.ToLower(mediaType)]
	if ext == "" {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mediaType)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxAssetSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxAssetSize)
	}
	return &payload{data: data, ext: ext}, nil
}

// assetName picks the file name: the caller's, else the URL's last segment,
// else a UUID. Unsafe characters become "_".
func assetName(given, rawURL, ext string) string {
	name := given
	if name == "" && !strings.HasPrefix(rawURL, "data:") {
		if u, err := url.Parse(rawURL); err == nil {
			if base := path.Base(u.Path); strings.Contains(base, ".") && base != "." {
				name = base
			}
		}
	}
	if name == "" {
		if ext == "" {
			ext = ".bin"
		}
		name = uuid.NewString() + ext
	}
	return sanitizeFilename(name)
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = unsafeNameRe.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == ".." {
		return uuid.NewString()
	}
	return name
}

// sniff checks that the content looks like the format its extension claims.
func sniff(data []byte, ext string) error {
	ext = canonicalExt(ext)
	if ext == ".svg" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return fmt.Errorf("content does not appear to be a valid SVG (missing <svg tag)")
		}
		return nil
	}
	detected := http.DetectContentType(data)
	mediaType, _, _ := mime.ParseMediaType(detected)
	if imageTypes[mediaType] != ext {
		return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
	}
	return nil
}

type importResult struct {
	Path string `json:"path"`
}

func (s *Server) importAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var p *payload
	if strings.HasPrefix(rawURL, "data:") {
		p, err = decodeDataURI(rawURL)
	} else {
		p, err = s.fetch.get(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := assetName(req.GetString("filename", ""), rawURL, p.ext)
	ext := filepath.Ext(name)
	if !allowedExt(ext) {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file extension: %q (allowed: png, jpg, jpeg, gif, webp, svg)", ext)), nil
	}
	if err := sniff(p.data, ext); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rel, err := s.stageAndImport(ctx, name, p.data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(importResult{Path: rel})
	return mcp.NewToolResultText(string(out)), nil
}

// stageAndImport writes data to a temp file called name and imports it, so
// collision handling stays with the collection store.
func (s *Server) stageAndImport(ctx context.Context, name string, data []byte) (string, error) {
	dir, err := os.MkdirTemp("", "sitedesk-asset-*")
	if err != nil {
		return "", fmt.Errorf("stage asset: %w", err)
	}
	defer os.RemoveAll(dir)

	staged := filepath.Join(dir, name)
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return "", fmt.Errorf("stage asset: %w", err)
	}
	rel, err := s.svc.ImportAsset(ctx, staged)
	if err != nil {
		return "", err
	}
	s.logger.Info("asset imported", slog.String("path", rel), slog.Int("bytes", len(data)))
	return rel, nil
}
