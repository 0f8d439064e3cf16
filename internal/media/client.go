package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"smilyweb/config"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// Asset is the media host's handle for an uploaded image.
type Asset struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

type UploadOptions struct {
	Folder string
	Width  int
	Crop   string
}

// Client talks to the external media host. The core never touches binary
// handling beyond streaming the file; storage and CDN URL issuance are the
// host's concern.
type Client struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cloudName:  cfg.MediaCloudName,
		apiKey:     cfg.MediaAPIKey,
		apiSecret:  cfg.MediaAPISecret,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at a different endpoint. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// Upload sends a filesystem path or an inline payload (remote URL or data
// URI) to the host and returns the issued asset handle.
func (c *Client) Upload(ctx context.Context, file string, opts UploadOptions) (*Asset, error) {
	params := map[string]string{}
	if opts.Folder != "" {
		params["folder"] = opts.Folder
	}
	if opts.Width > 0 {
		crop := opts.Crop
		if crop == "" {
			crop = "scale"
		}
		params["transformation"] = fmt.Sprintf("c_%s,w_%d", crop, opts.Width)
	}
	c.sign(params)

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)

	var req *http.Request
	var err error
	if info, statErr := os.Stat(file); statErr == nil && !info.IsDir() {
		req, err = c.newMultipartRequest(ctx, endpoint, file, params)
	} else {
		params["file"] = file
		req, err = c.newFormRequest(ctx, endpoint, params)
	}
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media upload failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("media upload failed: status %d: %s", res.StatusCode, body)
	}

	var asset Asset
	if err := json.NewDecoder(res.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("media upload failed: %w", err)
	}
	return &asset, nil
}

// Destroy removes a previously uploaded asset.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	params := map[string]string{"public_id": publicID}
	c.sign(params)

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := c.newFormRequest(ctx, endpoint, params)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("media destroy failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("media destroy failed: status %d", res.StatusCode)
	}
	return nil
}

// sign adds timestamp, api_key and the SHA-1 signature the host expects:
// the non-auth params sorted by key, ampersand-joined, secret appended.
func (c *Client) sign(params map[string]string) {
	params["timestamp"] = strconv.FormatInt(time.Now().Unix(), 10)
	params["signature"] = Signature(params, c.apiSecret)
	params["api_key"] = c.apiKey
}

// Signature computes the request signature over every param except file,
// api_key and signature itself.
func Signature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "file" || k == "api_key" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) newFormRequest(ctx context.Context, endpoint string, params map[string]string) (*http.Request, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *Client) newMultipartRequest(ctx context.Context, endpoint, path string, params map[string]string) (*http.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	body := new(strings.Builder)
	writer := multipart.NewWriter(body)
	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	part, err := writer.CreateFormFile("file", f.Name())
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
