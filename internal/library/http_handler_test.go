package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sarpowsky/booklib/internal/platform/openlibrary"
)

func newTestHandler(t *testing.T) (*HTTPHandler, *Service, *mockLookup) {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "library.json"), nil)
	require.NoError(t, err)
	lookup := &mockLookup{}
	service := NewService(store, lookup)
	return NewHTTPHandler(service, nil), service, lookup
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func TestHTTPHandler_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, _, lookup := newTestHandler(t)
		lookup.On("FetchByISBN", mock.Anything, "978-0-452-28423-4").Return(openlibrary.BookData{
			Title:  "1984",
			Author: "George Orwell",
			ISBN:   "9780452284234",
		}, nil)

		w := httptest.NewRecorder()
		handler.Create(w, jsonRequest(t, http.MethodPost, "/books", map[string]string{"isbn": "978-0-452-28423-4"}))

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
	})

	t.Run("malformed isbn rejected before lookup", func(t *testing.T) {
		handler, _, lookup := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.Create(w, jsonRequest(t, http.MethodPost, "/books", map[string]string{"isbn": "123"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		lookup.AssertNotCalled(t, "FetchByISBN", mock.Anything, mock.Anything)
	})

	t.Run("duplicate", func(t *testing.T) {
		handler, service, _ := newTestHandler(t)
		_, err := service.AddManual("1984", "George Orwell", "978-0-452-28423-4", "")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		handler.Create(w, jsonRequest(t, http.MethodPost, "/books", map[string]string{"isbn": "978-0-452-28423-4"}))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("lookup failure maps to bad gateway", func(t *testing.T) {
		handler, _, lookup := newTestHandler(t)
		lookupErr := fmt.Errorf("%w: book not found for ISBN 9780452284234", openlibrary.ErrLookup)
		lookup.On("FetchByISBN", mock.Anything, "978-0-452-28423-4").Return(openlibrary.BookData{}, lookupErr)

		w := httptest.NewRecorder()
		handler.Create(w, jsonRequest(t, http.MethodPost, "/books", map[string]string{"isbn": "978-0-452-28423-4"}))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("invalid json body", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/books", bytes.NewReader([]byte("{")))
		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_CreateManual(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, service, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.CreateManual(w, jsonRequest(t, http.MethodPost, "/books/manual", map[string]string{
			"title":  "1984",
			"author": "George Orwell",
			"isbn":   "978-0-452-28423-4",
			"genre":  "Dystopia",
		}))

		assert.Equal(t, http.StatusCreated, w.Code)
		_, ok := service.Find("978-0-452-28423-4")
		assert.True(t, ok)
	})

	t.Run("missing fields", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.CreateManual(w, jsonRequest(t, http.MethodPost, "/books/manual", map[string]string{
			"title": "1984",
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	handler, service, _ := newTestHandler(t)
	_, err := service.AddManual("1984", "George Orwell", "978-0-452-28423-4", "")
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books/978-0-452-28423-4", nil)
		r.SetPathValue("isbn", "978-0-452-28423-4")
		handler.Get(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/books/000", nil)
		r.SetPathValue("isbn", "000")
		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHTTPHandler_Update(t *testing.T) {
	handler, service, _ := newTestHandler(t)
	_, err := service.AddManual("1984", "George Orwell", "978-0-452-28423-4", "")
	require.NoError(t, err)

	t.Run("partial update", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := jsonRequest(t, http.MethodPut, "/books/978-0-452-28423-4", map[string]string{"genre": "Dystopia"})
		r.SetPathValue("isbn", "978-0-452-28423-4")
		handler.Update(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		book, ok := service.Find("978-0-452-28423-4")
		require.True(t, ok)
		assert.Equal(t, "Dystopia", book.Genre)
		assert.Equal(t, "1984", book.Title)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := jsonRequest(t, http.MethodPut, "/books/978-0-452-28423-4", map[string]string{"title": "  "})
		r.SetPathValue("isbn", "978-0-452-28423-4")
		handler.Update(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown isbn", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := jsonRequest(t, http.MethodPut, "/books/000", map[string]string{"title": "x"})
		r.SetPathValue("isbn", "000")
		handler.Update(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	handler, service, _ := newTestHandler(t)
	_, err := service.AddManual("1984", "George Orwell", "978-0-452-28423-4", "")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/books/978-0-452-28423-4", nil)
		r.SetPathValue("isbn", "978-0-452-28423-4")
		handler.Delete(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, service.Count())
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/books/978-0-452-28423-4", nil)
		r.SetPathValue("isbn", "978-0-452-28423-4")
		handler.Delete(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHTTPHandler_List(t *testing.T) {
	handler, service, _ := newTestHandler(t)
	for i := 0; i < 25; i++ {
		_, err := service.AddManual("Book", "Author", fmt.Sprintf("isbn-%02d", i), "")
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest(http.MethodGet, "/books?page=2&page_size=20", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(25), meta["total"])
	assert.Equal(t, float64(2), meta["total_pages"])
	assert.Len(t, body["data"].([]any), 5)
}

func TestHTTPHandler_Search(t *testing.T) {
	handler, service, _ := newTestHandler(t)
	_, err := service.AddManual("1984", "George Orwell", "978-0-452-28423-4", "")
	require.NoError(t, err)

	t.Run("matches", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/search?q=orwell", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Len(t, body["data"].([]any), 1)
	})

	t.Run("missing query", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/search", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no matches returns empty list", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Search(w, httptest.NewRequest(http.MethodGet, "/search?q=tolkien", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestHTTPHandler_StatsAndHealth(t *testing.T) {
	handler, service, _ := newTestHandler(t)
	_, err := service.AddManual("1984", "George Orwell", "978-0-452-28423-4", "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.Stats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["total_books"])

	w = httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "healthy", body["data"].(map[string]any)["status"])
}
