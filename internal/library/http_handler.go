package library

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sarpowsky/booklib/internal/httpx"
	"github.com/sarpowsky/booklib/internal/platform/openlibrary"
)

// CacheReporter exposes lookup-cache diagnostics for the health endpoint.
type CacheReporter interface {
	CacheStats() openlibrary.CacheStats
}

type HTTPHandler struct {
	service *Service
	cache   CacheReporter
}

func NewHTTPHandler(service *Service, cache CacheReporter) *HTTPHandler {
	return &HTTPHandler{service: service, cache: cache}
}

type addByISBNRequest struct {
	ISBN string `json:"isbn" validate:"required,isbn"`
}

type addManualRequest struct {
	Title  string `json:"title" validate:"required,min=1,max=500"`
	Author string `json:"author" validate:"required,min=1,max=200"`
	ISBN   string `json:"isbn" validate:"required,min=10,max=17"`
	Genre  string `json:"genre" validate:"max=100"`
}

type updateRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Genre  *string `json:"genre"`
}

// List handles GET /books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	books := h.service.List()
	total := len(books)

	offset := (page - 1) * pageSize
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	books = books[offset:end]

	httpx.JSONSuccess(w, books, map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": (total + pageSize - 1) / pageSize,
	})
}

// Create handles POST /books: add a book by ISBN via the external catalog.
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req addByISBNRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
		return
	}

	book, err := h.service.AddByISBN(r.Context(), req.ISBN)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSONSuccessCreated(w, book)
}

// CreateManual handles POST /books/manual: add a book without any lookup.
func (h *HTTPHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	var req addManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
		return
	}

	book, err := h.service.AddManual(req.Title, req.Author, req.ISBN, req.Genre)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSONSuccessCreated(w, book)
}

// Get handles GET /books/{isbn}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	isbn := r.PathValue("isbn")

	book, ok := h.service.Find(isbn)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book with ISBN "+isbn+" not found", nil)
		return
	}
	httpx.JSONSuccess(w, book, nil)
}

// Update handles PUT /books/{isbn}: apply whichever of title/author/genre
// are present, through the explicit setters.
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	isbn := r.PathValue("isbn")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}

	book, ok := h.service.Find(isbn)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book with ISBN "+isbn+" not found", nil)
		return
	}

	var err error
	if req.Title != nil {
		if book, err = h.service.SetTitle(isbn, *req.Title); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Author != nil {
		if book, err = h.service.SetAuthor(isbn, *req.Author); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Genre != nil {
		if book, err = h.service.SetGenre(isbn, *req.Genre); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	httpx.JSONSuccess(w, book, nil)
}

// Delete handles DELETE /books/{isbn}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	isbn := r.PathValue("isbn")

	book, ok := h.service.Find(isbn)
	if !ok {
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book with ISBN "+isbn+" not found", nil)
		return
	}

	if err := h.service.Remove(isbn); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.JSONSuccess(w, map[string]any{
		"message":      "Book with ISBN " + isbn + " successfully deleted",
		"deleted_book": book,
	}, nil)
}

// Search handles GET /search?q=&limit=
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		httpx.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Query parameter q is required", nil)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	books := h.service.Search(q)
	total := len(books)
	if len(books) > limit {
		books = books[:limit]
	}

	httpx.JSONSuccess(w, books, map[string]any{"total": total})
}

// Stats handles GET /stats
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, h.service.Statistics(), nil)
}

// Health handles GET /healthz
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"status":  "healthy",
		"library": h.service.Statistics(),
	}
	if h.cache != nil {
		data["lookup_cache"] = h.cache.CacheStats()
	}
	httpx.JSONSuccess(w, data, nil)
}

// writeServiceError maps the core error kinds onto HTTP statuses. This is
// the only place the presentation layer interprets them.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, openlibrary.ErrInvalidISBN):
		httpx.JSONError(w, http.StatusBadRequest, "INVALID_ISBN", err.Error(), nil)
	case errors.Is(err, ErrValidation):
		httpx.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrDuplicate):
		httpx.JSONError(w, http.StatusConflict, "DUPLICATE", err.Error(), nil)
	case errors.Is(err, openlibrary.ErrLookup):
		httpx.JSONError(w, http.StatusBadGateway, "LOOKUP_FAILED", err.Error(), nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
