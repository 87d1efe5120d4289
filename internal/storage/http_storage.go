package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

// SourceImage is a decoded image plus the original byte length, which the
// detector's size-proxy feature requires.
type SourceImage struct {
	Image      image.Image
	ByteLength int64
	Format     string
}

// ImageFetcher retrieves and decodes an image from a location.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (*SourceImage, error)
}

// DecodeSourceImage decodes raw image bytes (jpeg, png, gif, webp) into a
// SourceImage. Used for direct uploads, where the byte length is simply the
// upload size.
func DecodeSourceImage(data []byte) (*SourceImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &SourceImage{
		Image:      img,
		ByteLength: int64(len(data)),
		Format:     strings.ToLower(format),
	}, nil
}

var errBodyTooLarge = errors.New("response body too large")

// HTTPImageFetcher implements ImageFetcher over HTTP with bounded retries.
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPImageFetcher creates an HTTP image fetcher. maxBytes caps the
// response body read; <= 0 disables the cap.
func NewHTTPImageFetcher(maxBytes int64) ImageFetcher {
	transport := &http.Transport{
		// Connection pooling sized for single image downloads
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

// FetchImage downloads the full body so the original byte length is known,
// then decodes it. 5xx responses are retried up to 3 attempts; 4xx responses
// fail immediately.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (*SourceImage, error) {
	data, err := h.fetchBytes(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	return DecodeSourceImage(data)
}

func (h *HTTPImageFetcher) fetchBytes(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
		req.Header.Set("User-Agent", "AI-Image-Detector/1.0")

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, status, readErr := h.readBody(resp)
		switch {
		case status == http.StatusOK && readErr == nil:
			return data, nil
		case errors.Is(readErr, errBodyTooLarge):
			// Re-downloading an oversized body cannot help.
			return nil, readErr
		case readErr != nil:
			lastErr = readErr
		case status >= 400 && status < 500:
			// Client errors are non-retryable.
			return nil, fmt.Errorf("client error: status code %d", status)
		default:
			lastErr = fmt.Errorf("server error: status code %d", status)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("unknown error")
	}
	return nil, fmt.Errorf("failed to fetch image after 3 attempts: %w", lastErr)
}

func (h *HTTPImageFetcher) readBody(resp *http.Response) ([]byte, int, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var reader io.Reader = resp.Body
	if h.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, h.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read image body: %w", err)
	}
	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		return nil, resp.StatusCode, fmt.Errorf("image exceeds %d byte limit: %w", h.maxBytes, errBodyTooLarge)
	}
	return data, resp.StatusCode, nil
}
