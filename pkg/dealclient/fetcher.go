package dealclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPFetcher reads deals from the REST API with the same session token
// the socket was opened with.
type HTTPFetcher struct {
	base   string
	token  string
	client *http.Client
}

func NewHTTPFetcher(baseURL, token string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPFetcher{base: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (f *HTTPFetcher) FetchDeal(ctx context.Context, id int64) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.base+"/deals/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch deal %d: %w", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read deal %d: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch deal %d: unexpected status %d", id, resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("fetch deal %d: invalid json body", id)
	}
	return json.RawMessage(body), nil
}
