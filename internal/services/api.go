// Raw access to the catalog endpoint for debugging
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIService issues unbudgeted raw GET requests against the catalog endpoint and returns the response as-is.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a raw client for baseURL, defaulting to the public catalog endpoint.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultCatalogURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{baseURL: baseURL, httpClient: client}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// Pretty returns the body indented when it is JSON, verbatim otherwise.
func (r *APIResponse) Pretty() string {
	if !r.IsJSON {
		return string(r.Body)
	}

	var b bytes.Buffer
	if err := json.Indent(&b, r.Body, "", "  "); err != nil {
		return string(r.Body)
	}
	return b.String()
}

// ParseQuery turns "key=value" pairs (or a single raw query string) into [url.Values].
func ParseQuery(args ...string) (url.Values, error) {
	params := url.Values{}
	for _, arg := range args {
		parsed, err := url.ParseQuery(strings.TrimPrefix(arg, "?"))
		if err != nil {
			return nil, fmt.Errorf("invalid query %q: %w", arg, err)
		}
		for k, vs := range parsed {
			params[k] = append(params[k], vs...)
		}
	}
	return params, nil
}

// Get performs a GET request with params against the catalog endpoint.
func (a *APIService) Get(ctx context.Context, params url.Values) (*APIResponse, error) {
	fullURL := a.baseURL
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return readResponse(resp)
}

func readResponse(resp *http.Response) (*APIResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}
	return apiResp, nil
}
