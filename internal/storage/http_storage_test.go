package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{100, 150, 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
			expectError:   false,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
			expectError:   false,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	pngData := encodeTestPNG(t, 4, 4)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestCount := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				statusCode := http.StatusInternalServerError
				if requestCount < len(tt.responses) {
					statusCode = tt.responses[requestCount]
				}
				requestCount++

				if statusCode == http.StatusOK {
					w.Header().Set("Content-Type", "image/png")
					w.Write(pngData)
					return
				}
				w.WriteHeader(statusCode)
			}))
			defer server.Close()

			fetcher := NewHTTPImageFetcher(0)
			src, err := fetcher.FetchImage(context.Background(), server.URL)

			if requestCount != tt.expectRetries {
				t.Errorf("expected %d requests, got %d", tt.expectRetries, requestCount)
			}

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error containing %q, got %q", tt.errorContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if src.ByteLength != int64(len(pngData)) {
				t.Errorf("expected byte length %d, got %d", len(pngData), src.ByteLength)
			}
			if src.Format != "png" {
				t.Errorf("expected format png, got %q", src.Format)
			}
		})
	}
}

func TestHTTPImageFetcher_BodyTooLarge(t *testing.T) {
	pngData := encodeTestPNG(t, 32, 32)

	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Write(pngData)
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(16) // far below the PNG size
	_, err := fetcher.FetchImage(context.Background(), server.URL)

	if err == nil || !strings.Contains(err.Error(), "byte limit") {
		t.Fatalf("expected byte limit error, got %v", err)
	}
	if requestCount != 1 {
		t.Errorf("oversized body must not be retried, got %d requests", requestCount)
	}
}

func TestDecodeSourceImage(t *testing.T) {
	pngData := encodeTestPNG(t, 8, 6)

	src, err := DecodeSourceImage(pngData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bounds := src.Image.Bounds()
	if bounds.Dx() != 8 || bounds.Dy() != 6 {
		t.Errorf("expected 8x6 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if src.ByteLength != int64(len(pngData)) {
		t.Errorf("expected byte length %d, got %d", len(pngData), src.ByteLength)
	}
}

func TestDecodeSourceImage_Invalid(t *testing.T) {
	if _, err := DecodeSourceImage(nil); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := DecodeSourceImage([]byte("not an image")); err == nil {
		t.Error("expected error for malformed data")
	}
}
