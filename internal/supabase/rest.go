package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Data API operations against logical tables. query is an already-encoded
// filter string in the REST dialect (e.g. "user_id=eq.X&order=created_at.desc").

func tablePath(table, query string) string {
	path := "/rest/v1/" + url.PathEscape(table)
	if query != "" {
		path += "?" + query
	}
	return path
}

// Select fetches rows into out (a pointer to a slice).
func (c *Client) Select(ctx context.Context, accessToken, table, query string, out any) error {
	return c.request(ctx, http.MethodGet, tablePath(table, query), accessToken, nil, nil, out)
}

// SelectSingle fetches exactly one row into out. When no row matches, the
// remote answers with the designated no-rows code, surfaced as KindNotFound.
func (c *Client) SelectSingle(ctx context.Context, accessToken, table, query string, out any) error {
	headers := map[string]string{"Accept": "application/vnd.pgrst.object+json"}
	return c.request(ctx, http.MethodGet, tablePath(table, query), accessToken, nil, headers, out)
}

// Insert creates rows and decodes the returned representation into out.
func (c *Client) Insert(ctx context.Context, accessToken, table string, body, out any) error {
	headers := map[string]string{"Prefer": "return=representation"}
	return c.request(ctx, http.MethodPost, tablePath(table, ""), accessToken, body, headers, out)
}

// Upsert inserts or merges on the onConflict column set.
func (c *Client) Upsert(ctx context.Context, accessToken, table, onConflict string, body, out any) error {
	headers := map[string]string{
		"Prefer": "return=representation,resolution=merge-duplicates",
	}
	query := ""
	if onConflict != "" {
		query = "on_conflict=" + url.QueryEscape(onConflict)
	}
	return c.request(ctx, http.MethodPost, tablePath(table, query), accessToken, body, headers, out)
}

// Update patches the rows matched by query and returns the representation.
func (c *Client) Update(ctx context.Context, accessToken, table, query string, body, out any) error {
	if query == "" {
		return fmt.Errorf("update requires a row filter")
	}
	headers := map[string]string{"Prefer": "return=representation"}
	return c.request(ctx, http.MethodPatch, tablePath(table, query), accessToken, body, headers, out)
}

// Delete removes the rows matched by query.
func (c *Client) Delete(ctx context.Context, accessToken, table, query string) error {
	if query == "" {
		return fmt.Errorf("delete requires a row filter")
	}
	return c.request(ctx, http.MethodDelete, tablePath(table, query), accessToken, nil, nil, nil)
}
