// Catalog implementation for the public music API
//
// Every lookup is a GET against a single endpoint selected by the "types" query parameter.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

const (
	defaultCatalogURL  = "https://music-api.gdstudio.xyz/api.php"
	defaultBudget      = 60
	defaultBudgetSpan  = 5 * time.Minute
	defaultCoverSize   = 300
	defaultCatalogWait = 15 * time.Second
)

// CatalogService implements [Catalog] over HTTP with a caller-side request budget.
type CatalogService struct {
	baseURL    string
	coverSize  int
	httpClient *http.Client
	limiter    *Budget
	logger     *log.Logger
}

// CatalogOption customizes a [CatalogService].
type CatalogOption func(*CatalogService)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) CatalogOption {
	return func(s *CatalogService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithLimiter replaces the request budget.
func WithLimiter(l *Budget) CatalogOption {
	return func(s *CatalogService) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) CatalogOption {
	return func(s *CatalogService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewCatalogService creates a catalog client from the [shared.CatalogConfig] section.
//
// Zero values fall back to the public endpoint, a 15 second timeout and a budget of 60 requests per 5 minutes.
func NewCatalogService(cfg shared.CatalogConfig, opts ...CatalogOption) *CatalogService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultCatalogURL
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultCatalogWait
	}

	s := &CatalogService{
		baseURL:    baseURL,
		coverSize:  cfg.CoverSize,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    NewBudget(cfg.RateLimitRequests, cfg.Window()),
		logger:     shared.NewLogger(nil),
	}
	if s.coverSize <= 0 {
		s.coverSize = defaultCoverSize
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the service name.
func (c *CatalogService) Name() string {
	return "catalog"
}

// Search calls types=search.
func (c *CatalogService) Search(ctx context.Context, src models.Source, keyword string, count, page int) ([]models.SearchItem, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: empty search keyword", shared.ErrInvalidInput)
	}
	if count <= 0 {
		count = 20
	}
	if page <= 0 {
		page = 1
	}

	params := url.Values{
		"types":  {"search"},
		"source": {src.String()},
		"name":   {keyword},
		"count":  {strconv.Itoa(count)},
		"pages":  {strconv.Itoa(page)},
	}

	var items []models.SearchItem
	if err := c.doRequest(ctx, params, &items); err != nil {
		return nil, err
	}

	c.logger.Debug("search", "source", src, "keyword", keyword, "results", len(items))
	return items, nil
}

// StreamURL calls types=url. An empty URL is [shared.ErrNotFound].
func (c *CatalogService) StreamURL(ctx context.Context, src models.Source, id string, br models.Bitrate) (models.StreamInfo, error) {
	if id == "" {
		return models.StreamInfo{}, fmt.Errorf("%w: missing track id", shared.ErrInvalidInput)
	}
	if !br.Valid() {
		br = models.DefaultBitrate
	}

	params := url.Values{
		"types":  {"url"},
		"source": {src.String()},
		"id":     {id},
		"br":     {strconv.Itoa(int(br))},
	}

	var info models.StreamInfo
	if err := c.doRequest(ctx, params, &info); err != nil {
		return models.StreamInfo{}, err
	}
	if info.URL == "" {
		return models.StreamInfo{}, fmt.Errorf("%w: no stream url for %s track %s", shared.ErrNotFound, src, id)
	}
	return info, nil
}

// Cover calls types=pic. A size of zero uses the configured cover size.
func (c *CatalogService) Cover(ctx context.Context, src models.Source, picID string, size int) (models.CoverInfo, error) {
	if picID == "" {
		return models.CoverInfo{}, fmt.Errorf("%w: missing pic id", shared.ErrInvalidInput)
	}
	if size <= 0 {
		size = c.coverSize
	}

	params := url.Values{
		"types":  {"pic"},
		"source": {src.String()},
		"id":     {picID},
		"size":   {strconv.Itoa(size)},
	}

	var info models.CoverInfo
	if err := c.doRequest(ctx, params, &info); err != nil {
		return models.CoverInfo{}, err
	}
	return info, nil
}

// Lyric calls types=lyric.
func (c *CatalogService) Lyric(ctx context.Context, src models.Source, lyricID string) (models.LyricPayload, error) {
	if lyricID == "" {
		return models.LyricPayload{}, fmt.Errorf("%w: missing lyric id", shared.ErrInvalidInput)
	}

	params := url.Values{
		"types":  {"lyric"},
		"source": {src.String()},
		"id":     {lyricID},
	}

	var payload models.LyricPayload
	if err := c.doRequest(ctx, params, &payload); err != nil {
		return models.LyricPayload{}, err
	}
	return payload, nil
}

func (c *CatalogService) doRequest(ctx context.Context, params url.Values, result any) error {
	if !c.limiter.Allow() {
		return fmt.Errorf("%w: try again later", shared.ErrRateLimited)
	}

	apiURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", shared.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: catalog %s returned status %d", shared.ErrNetwork, params.Get("types"), resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrNetwork, params.Get("types"), err)
		}
	}

	return nil
}

var _ Catalog = (*CatalogService)(nil)
