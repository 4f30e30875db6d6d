package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// mediaTypeByExt maps URL suffixes to media types when the remote server
// does not declare a usable content type.
var mediaTypeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

const defaultMediaType = "image/jpeg"

// ImageResolver turns an image reference (data URI or remote URL) into a
// base64 payload plus media type, ready for a backend image block.
type ImageResolver struct {
	client *http.Client
}

func NewImageResolver() *ImageResolver {
	return &ImageResolver{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Resolve returns (base64 payload, media type). Data URIs are parsed locally
// with no network access; remote URLs are fetched synchronously and a failure
// aborts the whole request.
func (r *ImageResolver) Resolve(ctx context.Context, url string) (string, string, error) {
	if strings.HasPrefix(url, "data:") {
		return parseDataURI(url)
	}
	return r.fetch(ctx, url)
}

func parseDataURI(uri string) (string, string, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return "", "", &ValidationError{Field: "image_url", Reason: "malformed data URI: missing comma"}
	}
	mediaType := strings.TrimPrefix(header, "data:")
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", "", &ValidationError{Field: "image_url", Reason: "data URI media type must be image/*, got " + mediaType}
	}
	return payload, mediaType, nil
}

func (r *ImageResolver) fetch(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", &FetchError{URL: url, Err: err}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", "", &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", &FetchError{URL: url, Err: fmt.Errorf("reading body: %w", err)}
	}

	mediaType := responseMediaType(resp, url)
	return base64.StdEncoding.EncodeToString(body), mediaType, nil
}

func responseMediaType(resp *http.Response, url string) string {
	ct := resp.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	lower := strings.ToLower(url)
	for ext, mt := range mediaTypeByExt {
		if strings.HasSuffix(lower, ext) {
			return mt
		}
	}
	return defaultMediaType
}
