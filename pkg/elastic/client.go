// Package elastic provides a thin wrapper around the official Elasticsearch
// client with helpers for decoding API responses and surfacing index errors.
package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/shkelqim22/zgjedhjet/pkg/config"
)

// Client wraps an Elasticsearch client together with the configured index
// name.
type Client struct {
	ES    *elasticsearch.Client
	Index string
}

// New creates an Elasticsearch client and verifies the cluster is reachable.
func New(cfg config.ElasticsearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}
	return &Client{ES: es, Index: cfg.Index}, nil
}

// Ping checks cluster reachability.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.ES.Ping(c.ES.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}

// IndexExists reports whether the configured index exists.
func (c *Client) IndexExists(ctx context.Context) (bool, error) {
	res, err := c.ES.Indices.Exists(
		[]string{c.Index},
		c.ES.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("checking index %s: %w", c.Index, err)
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("checking index %s: %s", c.Index, res.Status())
	}
}

// DeleteIndex removes the configured index.
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.ES.Indices.Delete(
		[]string{c.Index},
		c.ES.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("deleting index %s: %w", c.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("deleting index %s: %s", c.Index, responseError(res))
	}
	return nil
}

// CreateIndex creates the configured index with the given settings/mappings
// body.
func (c *Client) CreateIndex(ctx context.Context, body io.Reader) error {
	res, err := c.ES.Indices.Create(
		c.Index,
		c.ES.Indices.Create.WithContext(ctx),
		c.ES.Indices.Create.WithBody(body),
	)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", c.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("creating index %s: %s", c.Index, responseError(res))
	}
	return nil
}

// Search runs a search request against the configured index and decodes the
// response into out.
func (c *Client) Search(ctx context.Context, body io.Reader, out any) error {
	res, err := c.ES.Search(
		c.ES.Search.WithContext(ctx),
		c.ES.Search.WithIndex(c.Index),
		c.ES.Search.WithBody(body),
	)
	if err != nil {
		return fmt.Errorf("searching index %s: %w", c.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("searching index %s: %s", c.Index, responseError(res))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding search response: %w", err)
	}
	return nil
}

// BulkResult summarises one _bulk call.
type BulkResult struct {
	Indexed    int
	Failed     int
	FirstError string
}

// Bulk sends a prepared NDJSON bulk body and reports per-item failures
// without failing the whole call.
func (c *Client) Bulk(ctx context.Context, body io.Reader) (*BulkResult, error) {
	res, err := c.ES.Bulk(
		body,
		c.ES.Bulk.WithContext(ctx),
		c.ES.Bulk.WithIndex(c.Index),
	)
	if err != nil {
		return nil, fmt.Errorf("bulk indexing into %s: %w", c.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk indexing into %s: %s", c.Index, responseError(res))
	}

	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding bulk response: %w", err)
	}

	result := &BulkResult{}
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Status >= 200 && op.Status < 300 {
				result.Indexed++
				continue
			}
			result.Failed++
			if result.FirstError == "" && op.Error != nil {
				result.FirstError = op.Error.Reason
			}
		}
	}
	return result, nil
}

// Refresh makes all indexed documents visible to search immediately.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.ES.Indices.Refresh(
		c.ES.Indices.Refresh.WithContext(ctx),
		c.ES.Indices.Refresh.WithIndex(c.Index),
	)
	if err != nil {
		return fmt.Errorf("refreshing index %s: %w", c.Index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("refreshing index %s: %s", c.Index, responseError(res))
	}
	return nil
}

// responseError extracts the error reason from an API error body, falling
// back to the HTTP status line.
func responseError(res *esapi.Response) string {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil && body.Error.Reason != "" {
		return fmt.Sprintf("%s: %s", body.Error.Type, body.Error.Reason)
	}
	return res.Status()
}
