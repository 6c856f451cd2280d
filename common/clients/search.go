package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lyzr/entityeditor/common/cache"
	"github.com/lyzr/entityeditor/common/config"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/tidwall/gjson"
)

// SearchClient queries the autocomplete and name-collision endpoints of
// the search service. Raw responses are cached by query.
type SearchClient struct {
	baseURL string
	http    *HTTPClient
	cache   cache.Cache
	ttl     time.Duration
	logger  Logger
}

// NewSearchClient creates a search client; c may be nil to disable caching
func NewSearchClient(cfg config.SearchConfig, c cache.Cache, logger Logger) *SearchClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &SearchClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    NewHTTPClient(&http.Client{Timeout: timeout}, logger),
		cache:   c,
		ttl:     cfg.CacheTTL,
		logger:  logger,
	}
}

// Autocomplete returns entities of entityType whose names start with q
func (c *SearchClient) Autocomplete(ctx context.Context, q string, entityType models.EntityType) ([]models.Entity, error) {
	return c.search(ctx, "autocomplete", q, entityType)
}

// Exists returns existing entities of entityType with a name close to
// name, used to warn before creating a duplicate
func (c *SearchClient) Exists(ctx context.Context, name string, entityType models.EntityType) ([]models.Entity, error) {
	return c.search(ctx, "exists", name, entityType)
}

func (c *SearchClient) search(ctx context.Context, endpoint, q string, entityType models.EntityType) ([]models.Entity, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Entity{}, nil
	}

	key := fmt.Sprintf("search:%s:%s:%s", endpoint, entityType, strings.ToLower(q))
	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn("search cache read failed", "key", key, "error", err)
		} else if ok {
			c.logger.Debug("search cache hit", "key", key)
			return parseEntities(body)
		}
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("type", string(entityType))
	target := fmt.Sprintf("%s/search/%s?%s", c.baseURL, endpoint, params.Encode())

	resp, err := c.http.DoRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s request failed: status=%d, body=%s", endpoint, resp.StatusCode, string(body))
	}

	entities, err := parseEntities(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && c.ttl > 0 {
		if err := c.cache.Set(ctx, key, body, c.ttl); err != nil {
			c.logger.Warn("search cache write failed", "key", key, "error", err)
		}
	}

	c.logger.Debug("search completed", "endpoint", endpoint, "type", entityType, "results", len(entities))
	return entities, nil
}

// parseEntities reads a bare array or {"results": [...]}. defaultAlias may
// be a string or an alias object.
func parseEntities(body []byte) ([]models.Entity, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid search response")
	}

	results := gjson.ParseBytes(body)
	if !results.IsArray() {
		results = results.Get("results")
	}
	if !results.IsArray() {
		return nil, fmt.Errorf("search response has no result list")
	}

	entities := make([]models.Entity, 0, len(results.Array()))
	results.ForEach(func(_, item gjson.Result) bool {
		alias := item.Get("defaultAlias.name")
		if !alias.Exists() && item.Get("defaultAlias").Type == gjson.String {
			alias = item.Get("defaultAlias")
		}
		entities = append(entities, models.Entity{
			BBID:           item.Get("bbid").String(),
			Type:           models.EntityType(item.Get("type").String()),
			DefaultAlias:   alias.String(),
			Disambiguation: item.Get("disambiguation").String(),
		})
		return true
	})
	return entities, nil
}
