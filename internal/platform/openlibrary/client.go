package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/sarpowsky/booklib/internal/logger"
	"github.com/sarpowsky/booklib/internal/platform/httpclient"
)

// Source is the provenance label attached to every normalized record.
const Source = "Open Library"

// ErrInvalidISBN is returned when an identifier does not have a valid
// ISBN-10 or ISBN-13 shape. The network is never contacted in that case.
var ErrInvalidISBN = errors.New("invalid ISBN format")

// ErrLookup is returned when the remote catalog cannot supply usable data:
// the book does not exist, the service keeps failing after retries, or the
// response cannot be parsed into a record.
var ErrLookup = errors.New("book lookup failed")

// BookData is the normalized shape of a raw catalog response.
type BookData struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	ISBN        string   `json:"isbn"`
	PublishDate string   `json:"publication_date,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Pages       int      `json:"pages,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	Source      string   `json:"api_source"`
}

// Options configures a Client. Zero values fall back to production defaults.
type Options struct {
	BaseURL       string
	UserAgent     string
	MaxRetries    int
	RPS           int
	CacheTTL      time.Duration
	CacheCapacity int
}

// Client fetches book data from the Open Library books API with bounded
// retries and a TTL cache keyed by cleaned ISBN.
type Client struct {
	httpClient httpclient.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	cache      *bookCache
	log        *zap.SugaredLogger
}

func NewClient(httpClient httpclient.Client, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://openlibrary.org"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "booklib/1.0"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RPS <= 0 {
		opts.RPS = 2
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 3600 * time.Second
	}
	if opts.CacheCapacity <= 0 {
		opts.CacheCapacity = 1000
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.RPS)), 1),
		maxRetries: opts.MaxRetries,
		backoff:    time.Second,
		cache:      newBookCache(opts.CacheCapacity, opts.CacheTTL),
		log:        logger.Sugar(),
	}
}

// CleanISBN strips hyphens and spaces from an identifier.
func CleanISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	return strings.TrimSpace(isbn)
}

// ValidISBN reports whether the cleaned identifier is 10 characters
// (positions 0-8 numeric, position 9 numeric or 'X') or 13 numeric characters.
func ValidISBN(isbn string) bool {
	clean := CleanISBN(isbn)
	switch len(clean) {
	case 10:
		for i := 0; i < 9; i++ {
			if clean[i] < '0' || clean[i] > '9' {
				return false
			}
		}
		last := clean[9]
		return (last >= '0' && last <= '9') || last == 'X'
	case 13:
		for i := 0; i < 13; i++ {
			if clean[i] < '0' || clean[i] > '9' {
				return false
			}
		}
		return true
	}
	return false
}

// FetchByISBN returns normalized book data for the given identifier.
// The cache is consulted before any network access; a hit returns immediately.
func (c *Client) FetchByISBN(ctx context.Context, isbn string) (BookData, error) {
	if !ValidISBN(isbn) {
		return BookData{}, fmt.Errorf("%w: %s", ErrInvalidISBN, isbn)
	}
	clean := CleanISBN(isbn)

	if data, ok := c.cache.Get(clean); ok {
		c.log.Infow("lookup cache hit", "isbn", clean)
		return data, nil
	}

	data, err := c.fetchWithRetry(ctx, clean)
	if err != nil {
		return BookData{}, err
	}

	c.cache.Set(clean, data)
	c.log.Infow("cached book data", "isbn", clean, "title", data.Title)
	return data, nil
}

// ClearCache empties the lookup cache.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// CacheStats reports cache size, capacity and TTL for diagnostics.
func (c *Client) CacheStats() CacheStats {
	return CacheStats{
		Size:     c.cache.Len(),
		Capacity: c.cache.capacity,
		TTL:      c.cache.ttl,
	}
}

func (c *Client) fetchWithRetry(ctx context.Context, isbn string) (BookData, error) {
	url := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn)
	headers := map[string]string{"User-Agent": c.userAgent}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return BookData{}, err
		}

		resp, err := c.httpClient.Get(ctx, url, headers)
		if err != nil {
			c.log.Warnw("lookup request failed", "isbn", isbn, "attempt", attempt, "error", err)
			lastErr = err
			if attempt == c.maxRetries {
				return BookData{}, fmt.Errorf("%w: network error after %d attempts: %v", ErrLookup, c.maxRetries, lastErr)
			}
			if err := c.sleep(ctx, attempt); err != nil {
				return BookData{}, err
			}
			continue
		}

		switch {
		case resp.StatusCode() == http.StatusOK:
			return normalize(resp.Body(), isbn)
		case resp.StatusCode() == http.StatusNotFound:
			// Confirmed absent, never retried.
			return BookData{}, fmt.Errorf("%w: book not found for ISBN %s", ErrLookup, isbn)
		default:
			c.log.Warnw("lookup returned unexpected status", "isbn", isbn, "attempt", attempt, "status", resp.StatusCode())
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode())
			if attempt == c.maxRetries {
				return BookData{}, fmt.Errorf("%w: request failed with status %d", ErrLookup, resp.StatusCode())
			}
			if err := c.sleep(ctx, attempt); err != nil {
				return BookData{}, err
			}
		}
	}
	return BookData{}, fmt.Errorf("%w: %v", ErrLookup, lastErr)
}

// sleep blocks for 2^attempt backoff units (2s, 4s, ... in production).
func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * c.backoff
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var titleCaser = cases.Title(language.Und)

// normalize converts a raw isbn/{id}.json body into BookData. Any failure
// here is terminal: a malformed 200 response is not worth retrying.
func normalize(body []byte, isbn string) (BookData, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return BookData{}, fmt.Errorf("%w: failed to parse response: %v", ErrLookup, err)
	}

	title := strings.TrimSpace(stringField(raw, "title"))
	if title == "" {
		return BookData{}, fmt.Errorf("%w: no title found in response for ISBN %s", ErrLookup, isbn)
	}

	data := BookData{
		Title:       title,
		Author:      normalizeAuthors(raw),
		ISBN:        isbn,
		PublishDate: stringField(raw, "publish_date"),
		Publisher:   firstPublisher(raw),
		Subjects:    normalizeSubjects(raw["subjects"]),
		Source:      Source,
	}
	if pages, ok := raw["number_of_pages"].(float64); ok {
		data.Pages = int(pages)
	}
	return data, nil
}

// normalizeAuthors resolves the authors list: reference objects contribute
// the trailing path segment of their key (underscores to spaces,
// title-cased), plain strings are kept as-is. Falls back to by_statement,
// then to a literal placeholder.
func normalizeAuthors(raw map[string]any) string {
	var authors []string
	if list, ok := raw["authors"].([]any); ok {
		for _, entry := range list {
			switch v := entry.(type) {
			case map[string]any:
				key, ok := v["key"].(string)
				if !ok {
					continue
				}
				parts := strings.Split(key, "/")
				name := strings.ReplaceAll(parts[len(parts)-1], "_", " ")
				authors = append(authors, titleCaser.String(name))
			case string:
				authors = append(authors, v)
			}
		}
	}
	if len(authors) == 0 {
		if by := stringField(raw, "by_statement"); by != "" {
			return by
		}
		return "Unknown Author"
	}
	return strings.Join(authors, ", ")
}

func normalizeSubjects(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return []string{}
	}
	if len(list) > 5 {
		list = list[:5]
	}
	subjects := make([]string, 0, len(list))
	for _, entry := range list {
		switch v := entry.(type) {
		case string:
			subjects = append(subjects, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				subjects = append(subjects, name)
			}
		}
	}
	return subjects
}

func firstPublisher(raw map[string]any) string {
	list, ok := raw["publishers"].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	if name, ok := list[0].(string); ok {
		return name
	}
	return ""
}

func stringField(raw map[string]any, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
