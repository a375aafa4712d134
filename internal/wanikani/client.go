// Package wanikani is a minimal client for the WaniKani API v2, covering
// only what the cache sync needs: paginated collection reads.
package wanikani

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the production WaniKani API endpoint.
const DefaultBaseURL = "https://api.wanikani.com/v2"

// Resource is one API resource: id, object type, and the full JSON
// envelope as returned, kept verbatim for the cache.
type Resource struct {
	ID     int64
	Object string
	Data   json.RawMessage
}

// collectionPage is the API's collection envelope.
type collectionPage struct {
	Pages struct {
		NextURL *string `json:"next_url"`
	} `json:"pages"`
	Data []json.RawMessage `json:"data"`
}

// resourceHeader is the part of a resource envelope needed for keying.
type resourceHeader struct {
	ID     int64  `json:"id"`
	Object string `json:"object"`
}

// Client fetches collections from the WaniKani API.
type Client struct {
	http    *resty.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a client authenticated with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		http:    resty.New().SetAuthToken(apiKey),
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCollection retrieves every resource in a collection, following
// pagination. A non-empty updatedAfter limits the fetch to resources
// changed since that timestamp (incremental sync). onPage, if set, is
// called after each page with the running resource count.
func (c *Client) FetchCollection(ctx context.Context, collection, updatedAfter string, onPage func(fetched int)) ([]Resource, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, collection)

	req := c.http.R().SetContext(ctx)
	if updatedAfter != "" {
		req.SetQueryParam("updated_after", updatedAfter)
	}

	var resources []Resource
	for {
		res, err := req.Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", collection, err)
		}
		if res.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d, body: %s", collection, res.StatusCode(), res.Body())
		}

		var page collectionPage
		if err := json.Unmarshal(res.Body(), &page); err != nil {
			return nil, fmt.Errorf("decode %s page: %w", collection, err)
		}

		for _, raw := range page.Data {
			var hdr resourceHeader
			if err := json.Unmarshal(raw, &hdr); err != nil {
				return nil, fmt.Errorf("decode %s resource: %w", collection, err)
			}
			resources = append(resources, Resource{ID: hdr.ID, Object: hdr.Object, Data: raw})
		}
		if onPage != nil {
			onPage(len(resources))
		}

		if page.Pages.NextURL == nil || *page.Pages.NextURL == "" {
			return resources, nil
		}
		// Pagination URLs come back fully qualified; query params are
		// already baked in, so drop ours for the follow-up requests.
		url = *page.Pages.NextURL
		req = c.http.R().SetContext(ctx)
	}
}
