package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const maxAdminResponseSize = 1 << 20

// AdminClient issues Admin GraphQL requests on behalf of a shop.
type AdminClient struct {
	httpClient *http.Client
	apiVersion string
	shopURL    func(shop string) string
}

// NewAdminClient creates an Admin API client for the given API version (e.g. 2024-01).
func NewAdminClient(apiVersion string, httpClient *http.Client) *AdminClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &AdminClient{
		httpClient: httpClient,
		apiVersion: apiVersion,
		shopURL:    httpsURL,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Query posts a GraphQL document and returns the data object.
func (c *AdminClient) Query(ctx context.Context, shop, accessToken, query string, variables map[string]any) (gjson.Result, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal graphql request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.shopURL(shop), c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("graphql request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAdminResponseSize))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read graphql response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("graphql request: unexpected status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("graphql response is not valid JSON")
	}

	if errs := gjson.GetBytes(raw, "errors"); errs.Exists() && len(errs.Array()) > 0 {
		return gjson.Result{}, fmt.Errorf("graphql error: %s", errs.Get("0.message").String())
	}
	return gjson.GetBytes(raw, "data"), nil
}
