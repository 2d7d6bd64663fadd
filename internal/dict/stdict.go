// apps/go-server/internal/dict/stdict.go
//
// Client for the Standard Korean Language Dictionary open API.
// Responsibilities:
//   - Exact-match lookup of a single word.
//   - Distinguish "not a word" (clean empty result) from "could not ask"
//     (transport failure, bad status, empty or malformed body, API error object).
//   - Extract the first sense's definition; the API returns `item` and `sense`
//     either as arrays or as single objects.

package dict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

var (
	// ErrNotConfigured means no API key was provided.
	ErrNotConfigured = errors.New("dict: api key not configured")
	// ErrUpstream covers transport failures, non-2xx statuses and API error objects.
	ErrUpstream = errors.New("dict: upstream failure")
	// ErrMalformed covers empty or unparseable bodies.
	ErrMalformed = errors.New("dict: malformed response")
)

// DefaultBaseURL is the search endpoint of stdict.korean.go.kr.
const DefaultBaseURL = "https://stdict.korean.go.kr/api/search.do"

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

// Client looks words up in the standard dictionary.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewClient builds a client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, key string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, key: key, http: &http.Client{Timeout: timeout}}
}

// Lookup implements game.Validator.
func (c *Client) Lookup(ctx context.Context, word string) (game.Lookup, error) {
	if c.key == "" {
		return game.Lookup{}, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("key", c.key)
	q.Set("q", word)
	q.Set("req_type", "json")
	q.Set("method", "exact")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return game.Lookup{}, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return game.Lookup{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return game.Lookup{}, fmt.Errorf("%w: status %d", ErrUpstream, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return game.Lookup{}, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	return parse(body)
}

// parse interprets a search response body.
func parse(body []byte) (game.Lookup, error) {
	if strings.TrimSpace(string(body)) == "" {
		return game.Lookup{}, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if !gjson.ValidBytes(body) {
		return game.Lookup{}, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	doc := gjson.ParseBytes(body)
	if apiErr := doc.Get("error"); apiErr.Exists() {
		return game.Lookup{}, fmt.Errorf("%w: api error %s: %s", ErrUpstream,
			apiErr.Get("error_code").String(), apiErr.Get("message").String())
	}
	channel := doc.Get("channel")
	if !channel.IsObject() {
		return game.Lookup{}, fmt.Errorf("%w: missing channel", ErrMalformed)
	}
	// total is numeric on success but a string in some API versions; Int handles both.
	if channel.Get("total").Int() <= 0 {
		return game.Lookup{}, nil
	}
	sense := first(first(channel.Get("item")).Get("sense"))
	return game.Lookup{Exists: true, Definition: sense.Get("definition").String()}, nil
}

// first returns the first element of an array, or r itself for any other value.
func first(r gjson.Result) gjson.Result {
	if !r.IsArray() {
		return r
	}
	arr := r.Array()
	if len(arr) == 0 {
		return gjson.Result{}
	}
	return arr[0]
}
