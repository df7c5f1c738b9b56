package openlibrary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarpowsky/booklib/internal/platform/httpclient"
)

type fakeResponse struct {
	code int
	body []byte
}

func (f fakeResponse) Body() []byte    { return f.body }
func (f fakeResponse) StatusCode() int { return f.code }

type fakeResult struct {
	resp fakeResponse
	err  error
}

// fakeHTTPClient replays a queue of canned results and records every call.
type fakeHTTPClient struct {
	results []fakeResult
	calls   int
	lastURL string
}

func (f *fakeHTTPClient) Get(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	f.lastURL = url
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := f.results[i]
	if r.err != nil {
		return nil, r.err
	}
	return r.resp, nil
}

func newTestClient(httpc httpclient.Client) *Client {
	c := NewClient(httpc, Options{
		BaseURL: "https://example.test",
		RPS:     1000,
	})
	c.backoff = time.Millisecond
	return c
}

func TestValidISBN(t *testing.T) {
	cases := []struct {
		isbn  string
		valid bool
	}{
		{"0-452-28423-0", true},
		{"0452284230", true},
		{"045228423X", true},
		{"0 452 28423 X", true},
		{"978-0-452-28423-4", true},
		{"9780452284234", true},
		{"123", false},
		{"045228423Y", false},
		{"X452284230", false},
		{"97804522842345", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.isbn, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidISBN(tc.isbn))
		})
	}
}

func TestFetchByISBN_InvalidFormatSkipsNetwork(t *testing.T) {
	httpc := &fakeHTTPClient{}
	client := newTestClient(httpc)

	_, err := client.FetchByISBN(context.Background(), "123")
	assert.ErrorIs(t, err, ErrInvalidISBN)
	assert.Equal(t, 0, httpc.calls)
}

func TestFetchByISBN_Success(t *testing.T) {
	body := []byte(`{
		"title": "  1984 ",
		"authors": [{"key": "/authors/George_Orwell"}],
		"publish_date": "1949",
		"publishers": ["Secker & Warburg", "Penguin"],
		"number_of_pages": 328,
		"subjects": ["s1", "s2", "s3", "s4", "s5", "s6", "s7"]
	}`)
	httpc := &fakeHTTPClient{results: []fakeResult{{resp: fakeResponse{code: 200, body: body}}}}
	client := newTestClient(httpc)

	data, err := client.FetchByISBN(context.Background(), "0-452-28423-0")
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/isbn/0452284230.json", httpc.lastURL)
	assert.Equal(t, "1984", data.Title)
	assert.Equal(t, "George Orwell", data.Author)
	assert.Equal(t, "0452284230", data.ISBN)
	assert.Equal(t, "1949", data.PublishDate)
	assert.Equal(t, "Secker & Warburg", data.Publisher)
	assert.Equal(t, 328, data.Pages)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4", "s5"}, data.Subjects)
	assert.Equal(t, "Open Library", data.Source)
}

func TestFetchByISBN_NotFoundIsTerminal(t *testing.T) {
	httpc := &fakeHTTPClient{results: []fakeResult{{resp: fakeResponse{code: 404}}}}
	client := newTestClient(httpc)

	_, err := client.FetchByISBN(context.Background(), "0452284230")
	assert.ErrorIs(t, err, ErrLookup)
	assert.Equal(t, 1, httpc.calls)
}

func TestFetchByISBN_ServerErrorRetries(t *testing.T) {
	httpc := &fakeHTTPClient{results: []fakeResult{
		{resp: fakeResponse{code: 500}},
		{resp: fakeResponse{code: 500}},
		{resp: fakeResponse{code: 500}},
	}}
	client := newTestClient(httpc)

	_, err := client.FetchByISBN(context.Background(), "0452284230")
	assert.ErrorIs(t, err, ErrLookup)
	assert.Equal(t, 3, httpc.calls)
}

func TestFetchByISBN_RetryThenSuccess(t *testing.T) {
	httpc := &fakeHTTPClient{results: []fakeResult{
		{resp: fakeResponse{code: 503}},
		{resp: fakeResponse{code: 200, body: []byte(`{"title": "1984"}`)}},
	}}
	client := newTestClient(httpc)

	data, err := client.FetchByISBN(context.Background(), "0452284230")
	require.NoError(t, err)
	assert.Equal(t, "1984", data.Title)
	assert.Equal(t, 2, httpc.calls)
}

func TestFetchByISBN_NetworkErrorRetries(t *testing.T) {
	cause := errors.New("connection refused")
	httpc := &fakeHTTPClient{results: []fakeResult{{err: cause}, {err: cause}, {err: cause}}}
	client := newTestClient(httpc)

	_, err := client.FetchByISBN(context.Background(), "0452284230")
	assert.ErrorIs(t, err, ErrLookup)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, httpc.calls)
}

func TestFetchByISBN_ParseFailureIsTerminal(t *testing.T) {
	httpc := &fakeHTTPClient{results: []fakeResult{{resp: fakeResponse{code: 200, body: []byte("{bad json")}}}}
	client := newTestClient(httpc)

	_, err := client.FetchByISBN(context.Background(), "0452284230")
	assert.ErrorIs(t, err, ErrLookup)
	assert.Equal(t, 1, httpc.calls)
}

func TestFetchByISBN_MissingTitleIsTerminal(t *testing.T) {
	httpc := &fakeHTTPClient{results: []fakeResult{{resp: fakeResponse{code: 200, body: []byte(`{"title": "  "}`)}}}}
	client := newTestClient(httpc)

	_, err := client.FetchByISBN(context.Background(), "0452284230")
	assert.ErrorIs(t, err, ErrLookup)
	assert.Equal(t, 1, httpc.calls)
}

func TestFetchByISBN_CacheHitSkipsNetwork(t *testing.T) {
	httpc := &fakeHTTPClient{results: []fakeResult{{resp: fakeResponse{code: 200, body: []byte(`{"title": "1984"}`)}}}}
	client := newTestClient(httpc)

	first, err := client.FetchByISBN(context.Background(), "0452284230")
	require.NoError(t, err)
	require.Equal(t, 1, httpc.calls)

	// Hyphenation differences map onto the same cache key.
	second, err := client.FetchByISBN(context.Background(), "0-452-28423-0")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, httpc.calls)
}

func TestClient_ClearCacheAndStats(t *testing.T) {
	httpc := &fakeHTTPClient{results: []fakeResult{{resp: fakeResponse{code: 200, body: []byte(`{"title": "1984"}`)}}}}
	client := NewClient(httpc, Options{CacheTTL: time.Hour, CacheCapacity: 42, RPS: 1000})
	client.backoff = time.Millisecond

	_, err := client.FetchByISBN(context.Background(), "0452284230")
	require.NoError(t, err)

	stats := client.CacheStats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 42, stats.Capacity)
	assert.Equal(t, time.Hour, stats.TTL)

	client.ClearCache()
	assert.Equal(t, 0, client.CacheStats().Size)
}

func TestNormalize_Authors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "reference objects",
			body: `{"title": "x", "authors": [{"key": "/authors/George_Orwell"}, {"key": "/authors/Aldous_Huxley"}]}`,
			want: "George Orwell, Aldous Huxley",
		},
		{
			name: "plain strings",
			body: `{"title": "x", "authors": ["Jane Doe"]}`,
			want: "Jane Doe",
		},
		{
			name: "by_statement fallback",
			body: `{"title": "x", "by_statement": "edited by Someone"}`,
			want: "edited by Someone",
		},
		{
			name: "unknown author",
			body: `{"title": "x"}`,
			want: "Unknown Author",
		},
		{
			name: "unresolvable entries fall through",
			body: `{"title": "x", "authors": [{"name": "no key"}], "by_statement": "fallback"}`,
			want: "fallback",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := normalize([]byte(tc.body), "0452284230")
			require.NoError(t, err)
			assert.Equal(t, tc.want, data.Author)
		})
	}
}

func TestNormalize_NonListSubjects(t *testing.T) {
	data, err := normalize([]byte(`{"title": "x", "subjects": "not a list"}`), "0452284230")
	require.NoError(t, err)
	assert.Equal(t, []string{}, data.Subjects)
}
