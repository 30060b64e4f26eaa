// Package pinning uploads files to an IPFS pinning service and builds public
// gateway links for the resulting content hashes.
package pinning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/metrics"
)

const provider = "pinata"

// ErrMissingCredentials indicates the client was configured without keys.
var ErrMissingCredentials = errors.New("pinning: api key and secret are required")

// Options configures the pinning client.
type Options struct {
	APIKey         string
	APISecret      string
	BaseURL        string
	GatewayURL     string
	HTTPClient     *http.Client
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
}

// Client talks to the Pinata pinning API.
type Client struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	gatewayURL string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Pin is the result of a successful upload.
type Pin struct {
	Hash      string
	Size      int64
	Timestamp string
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type errorResponse struct {
	Error json.RawMessage `json:"error"`
}

// NewClient constructs a client with defaults for the public Pinata endpoints.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.pinata.cloud"
	}
	gatewayURL := strings.TrimRight(opts.GatewayURL, "/")
	if gatewayURL == "" {
		gatewayURL = "https://gateway.pinata.cloud"
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		apiSecret:  strings.TrimSpace(opts.APISecret),
		baseURL:    baseURL,
		gatewayURL: gatewayURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// GatewayURL returns the public URL for an IPFS content hash.
func (c *Client) GatewayURL(hash string) string {
	return c.gatewayURL + "/ipfs/" + hash
}

// PinFile streams r to the pinFileToIPFS endpoint as a multipart upload.
func (c *Client) PinFile(ctx context.Context, filename string, r io.Reader) (Pin, error) {
	if !c.HasCredentials() {
		return Pin{}, ErrMissingCredentials
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}

	body, contentType := multipartBody(name, r)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pinning/pinFileToIPFS", body)
	if err != nil {
		return Pin{}, fmt.Errorf("pinning: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.apiSecret)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		return Pin{}, fmt.Errorf("pinning: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		return Pin{}, fmt.Errorf("pinning: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && len(detail.Error) > 0 {
			return Pin{}, fmt.Errorf("pinning: status %d: %s", resp.StatusCode, string(detail.Error))
		}
		return Pin{}, fmt.Errorf("pinning: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded pinResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		return Pin{}, fmt.Errorf("pinning: decode response: %w", err)
	}
	if decoded.IpfsHash == "" {
		metrics.UpstreamRequests.WithLabelValues(provider, "error").Inc()
		return Pin{}, errors.New("pinning: empty ipfs hash")
	}
	metrics.UpstreamRequests.WithLabelValues(provider, "ok").Inc()
	c.logger.Debug().
		Str("hash", decoded.IpfsHash).
		Int64("size", decoded.PinSize).
		Dur("elapsed", time.Since(started)).
		Msg("pinning: file pinned")
	return Pin{Hash: decoded.IpfsHash, Size: decoded.PinSize, Timestamp: decoded.Timestamp}, nil
}

// multipartBody streams r as the "file" form part through a pipe so large
// uploads are not buffered in memory.
func multipartBody(filename string, r io.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()
	return pr, mw.FormDataContentType()
}
