// Package liveedit fetches the show entry list the bridge is started for.
package liveedit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"artnet2fshdr/internal/logger"
)

// Entries is the raw LiveEdit entry list. The bridge only checks that it can
// be fetched; entries are kept opaque for the playback side.
type Entries []json.RawMessage

// Client fetches LiveEdit data.
type Client struct {
	log  logger.Logger
	url  string
	http *http.Client
}

// NewClient конструктор.
func NewClient(log logger.Logger, url string, timeout time.Duration) *Client {
	return &Client{
		log:  log,
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// FetchData downloads and decodes the entry list.
func (c *Client) FetchData(ctx context.Context) (Entries, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build liveedit request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data from LiveEdit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching data from LiveEdit: %s", resp.Status)
	}

	var entries Entries
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("error decoding LiveEdit data: %w", err)
	}

	c.log.With(logger.Fields{"module": "liveedit"}).Infof("fetched %d entries", len(entries))
	return entries, nil
}
