package web

import (
	"fmt"
	"net/url"

	"github.com/banshee-data/scanlabel/internal/httputil"
	"github.com/banshee-data/scanlabel/internal/journal"
	"github.com/banshee-data/scanlabel/internal/labeler"
	"github.com/banshee-data/scanlabel/internal/session"
)

// Client talks to a running labeler over HTTP.
type Client struct {
	api *httputil.JSONClient
}

// NewClient returns a client for the labeler at baseURL. A nil hc uses
// http.DefaultClient.
func NewClient(baseURL string, hc httputil.HTTPClient) *Client {
	return &Client{api: httputil.NewJSONClient(baseURL, hc)}
}

// State fetches the session snapshot.
func (c *Client) State() (session.Snapshot, error) {
	var snap session.Snapshot
	err := c.api.GetJSON("/api/state", &snap)
	return snap, err
}

// Catalog fetches both directory listings.
func (c *Client) Catalog() (CatalogResponse, error) {
	var resp CatalogResponse
	err := c.api.GetJSON("/api/catalog", &resp)
	return resp, err
}

// Send posts ev and returns its outcome. A rejected event is returned as
// an error carrying the server's message.
func (c *Client) Send(ev labeler.Event) (labeler.Outcome, error) {
	var resp EventResponse
	if err := c.api.PostJSON("/api/events", ev, &resp); err != nil {
		return labeler.Outcome{}, err
	}
	return resp.Outcome, nil
}

// Notices fetches notices newer than since.
func (c *Client) Notices(since int) ([]labeler.Notice, error) {
	var out []labeler.Notice
	err := c.api.GetJSON(fmt.Sprintf("/api/notices?since=%d", since), &out)
	return out, err
}

// Journal fetches up to limit recent saves.
func (c *Client) Journal(limit int) ([]journal.Entry, error) {
	var out []journal.Entry
	q := url.Values{"limit": {fmt.Sprint(limit)}}
	err := c.api.GetJSON("/api/journal?"+q.Encode(), &out)
	return out, err
}
