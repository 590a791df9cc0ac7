package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/sakif/easychef/internal/store"
)

// serverTimeLiteral is what ServerTime is sent as; Postgres evaluates it
// when casting the value to the column's timestamp type.
const serverTimeLiteral = "now()"

// filterQuery renders filters in PostgREST's horizontal-filter syntax
// (column=eq.value).
func filterQuery(filters []store.Filter) url.Values {
	q := url.Values{}
	for _, f := range filters {
		q.Add(f.Column, "eq."+f.Value)
	}
	return q
}

// Select issues GET /rest/v1/{collection}?select=*&col=eq.value.
func (c *Client) Select(ctx context.Context, collection string, filters ...store.Filter) ([]json.RawMessage, error) {
	tok, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	u := c.baseURL.JoinPath("rest", "v1", collection)
	q := filterQuery(filters)
	q.Set("select", "*")
	u.RawQuery = q.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, u, nil, tok)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := c.do(req, "rest: select "+collection, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Update issues PATCH /rest/v1/{collection}?col=eq.value with fields as the body.
func (c *Client) Update(ctx context.Context, collection string, fields store.Fields, filters ...store.Filter) error {
	tok, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	body := make(map[string]any, len(fields))
	for k, v := range fields {
		if store.IsServerTime(v) {
			v = serverTimeLiteral
		}
		body[k] = v
	}

	u := c.baseURL.JoinPath("rest", "v1", collection)
	u.RawQuery = filterQuery(filters).Encode()

	req, err := c.newRequest(ctx, http.MethodPatch, u, body, tok)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")

	return c.do(req, "rest: update "+collection, nil)
}
