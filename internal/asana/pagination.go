package asana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// page is the Asana paginated response envelope. next_page is absent
// on the final page.
type page[T any] struct {
	Data     []T `json:"data"`
	NextPage *struct {
		Offset string `json:"offset"`
	} `json:"next_page"`
}

// fetchAll paginates a collection endpoint to exhaustion, following the
// offset cursor returned by the server. Each page is fetched with
// limit=pageSize; K pages means exactly K requests.
func fetchAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	params := url.Values{}
	for key, values := range query {
		params[key] = values
	}
	params.Set("limit", fmt.Sprintf("%d", pageSize))

	var all []T
	for {
		body, err := c.do(ctx, c.baseURL+path+"?"+params.Encode())
		if err != nil {
			return nil, err
		}

		var pg page[T]
		if err := json.Unmarshal(body, &pg); err != nil {
			return nil, fmt.Errorf("asana: parsing page: %w", err)
		}
		all = append(all, pg.Data...)

		if pg.NextPage == nil || pg.NextPage.Offset == "" {
			return all, nil
		}
		params.Set("offset", pg.NextPage.Offset)
	}
}
