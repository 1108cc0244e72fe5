// Package httpclient talks to the SmartLife REST API. Every call is one
// request with one outcome; nothing is retried here.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"

	apperrors "smartlife/client/internal/errors"
)

// TokenSource supplies the bearer token and is told when the API rejects it.
type TokenSource interface {
	AuthToken(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
}

func New(baseURL string, httpClient *http.Client, tokens TokenSource, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}
}

type Options struct {
	Method  string
	Body    interface{}
	Headers map[string]string
	// NoAuth suppresses the Authorization header.
	NoAuth bool
	// Raw sends Body as-is; it must be an io.Reader, []byte or string.
	Raw bool
}

type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyText
	BodyBinary
)

// Body is a response payload classified by its content type.
type Body struct {
	Kind        BodyKind
	ContentType string
	Raw         []byte
}

// Decode unmarshals a JSON body into v. Empty bodies decode to nothing.
func (b *Body) Decode(v interface{}) error {
	if b == nil || b.Kind == BodyNone || len(b.Raw) == 0 {
		return nil
	}
	if b.Kind != BodyJSON {
		return fmt.Errorf("decode body: unexpected content type %q", b.ContentType)
	}
	return json.Unmarshal(b.Raw, v)
}

// Value returns the parsed payload: a decoded JSON value, a string for text,
// raw bytes otherwise, and nil for an empty response.
func (b *Body) Value() interface{} {
	if b == nil {
		return nil
	}
	switch b.Kind {
	case BodyJSON:
		var v interface{}
		if err := json.Unmarshal(b.Raw, &v); err != nil {
			return nil
		}
		return v
	case BodyText:
		return string(b.Raw)
	case BodyBinary:
		return b.Raw
	default:
		return nil
	}
}

var absoluteURL = regexp.MustCompile(`(?i)^https?://`)

// URL resolves path against the configured base; absolute URLs pass through.
func (c *Client) URL(path string) string {
	if path == "" {
		return c.baseURL
	}
	if absoluteURL.MatchString(path) {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Fetch performs one request. Non-2xx responses become *APIError carrying the
// status and parsed body; a 401 also clears the session. Transport failures
// become *APIError with status 0. When ctx is done the context error is
// returned as-is.
func (c *Client) Fetch(ctx context.Context, path string, opts Options) (*Body, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	payload, isJSON, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), payload)
	if err != nil {
		return nil, apperrors.Transport(err)
	}

	req.Header.Set("Accept", "application/json")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}
	if isJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if !opts.NoAuth && c.tokens != nil {
		token, err := c.tokens.AuthToken(ctx)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Transport(err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Transport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			if clearErr := c.tokens.Clear(ctx); clearErr != nil {
				c.logger.Printf("httpclient: clear session after 401: %v", clearErr)
			}
		}
		return nil, apperrors.FromResponse(resp.StatusCode, body.Value())
	}

	return body, nil
}

// JSON performs Fetch and decodes a JSON response into out when out is not nil.
func (c *Client) JSON(ctx context.Context, path string, opts Options, out interface{}) error {
	body, err := c.Fetch(ctx, path, opts)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := body.Decode(out); err != nil {
		return apperrors.FromResponse(http.StatusBadGateway, map[string]interface{}{
			"message": fmt.Sprintf("invalid response from server: %v", err),
		})
	}
	return nil
}

func encodeBody(opts Options) (io.Reader, bool, error) {
	if opts.Body == nil {
		return nil, false, nil
	}
	if opts.Raw {
		switch body := opts.Body.(type) {
		case io.Reader:
			return body, false, nil
		case []byte:
			return bytes.NewReader(body), false, nil
		case string:
			return strings.NewReader(body), false, nil
		default:
			return nil, false, fmt.Errorf("raw body must be io.Reader, []byte or string, got %T", opts.Body)
		}
	}
	raw, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, false, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(raw), true, nil
}

func readBody(resp *http.Response) (*Body, error) {
	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode == http.StatusNoContent {
		return &Body{Kind: BodyNone, ContentType: contentType}, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	body := &Body{ContentType: contentType, Raw: raw}
	switch {
	case strings.Contains(contentType, "application/json"):
		body.Kind = BodyJSON
		if !json.Valid(raw) {
			body.Kind = BodyNone
			body.Raw = nil
		}
	case strings.HasPrefix(contentType, "text/"):
		body.Kind = BodyText
	default:
		body.Kind = BodyBinary
	}
	return body, nil
}
