package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Statistics summarizes the catalog for reporting.
type Statistics struct {
	TotalBooks    int      `json:"total_books"`
	UniqueAuthors int      `json:"unique_authors"`
	Authors       []string `json:"authors"`
}

// Store is an ordered in-memory book collection backed by a flat JSON file.
// Every mutation rewrites the whole file, renaming the previous version to
// <path>.backup first. Not safe for concurrent use: there is no locking, and
// interleaved mutations from multiple goroutines can corrupt the backing file.
type Store struct {
	path  string
	books []Book
	log   *zap.SugaredLogger
}

// NewStore opens a store at path, creating the parent directory if needed
// and loading any existing file. A corrupt or invalid file is logged and
// ignored; the store starts empty rather than refusing to open.
func NewStore(path string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	s := &Store{path: path, log: log}
	s.load()
	log.Infow("library initialized", "path", path, "books", len(s.books))
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Add appends a book and persists the store. Fails with ErrDuplicate if a
// book with the same ISBN is already present.
func (s *Store) Add(book Book) error {
	if s.indexOf(book.Key()) >= 0 {
		return fmt.Errorf("%w: ISBN %s", ErrDuplicate, book.ISBN)
	}
	s.books = append(s.books, book)
	if err := s.Save(); err != nil {
		return err
	}
	s.log.Infow("added book", "isbn", book.ISBN, "title", book.Title)
	return nil
}

// AddManual constructs a validated book and adds it.
func (s *Store) AddManual(title, author, isbn, genre string) (Book, error) {
	book, err := NewBook(title, author, isbn, genre)
	if err != nil {
		return Book{}, err
	}
	if err := s.Add(book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// Remove deletes the book with the given ISBN and persists the store.
func (s *Store) Remove(isbn string) error {
	i := s.indexOf(isbn)
	if i < 0 {
		return fmt.Errorf("%w: no book with ISBN %s", ErrNotFound, isbn)
	}
	removed := s.books[i]
	s.books = append(s.books[:i], s.books[i+1:]...)
	if err := s.Save(); err != nil {
		return err
	}
	s.log.Infow("removed book", "isbn", removed.ISBN, "title", removed.Title)
	return nil
}

// Find returns the book with the given ISBN, if present.
func (s *Store) Find(isbn string) (Book, bool) {
	if i := s.indexOf(isbn); i >= 0 {
		return s.books[i], true
	}
	return Book{}, false
}

// List returns a copy of all books in store order. Mutating the returned
// slice does not affect the store.
func (s *Store) List() []Book {
	books := make([]Book, len(s.books))
	copy(books, s.books)
	return books
}

// Search returns every book whose title, author or ISBN contains the query,
// case-insensitively, in store order.
func (s *Store) Search(query string) []Book {
	q := strings.ToLower(query)
	var matches []Book
	for _, book := range s.books {
		if strings.Contains(strings.ToLower(book.Title), q) ||
			strings.Contains(strings.ToLower(book.Author), q) ||
			strings.Contains(strings.ToLower(book.ISBN), q) {
			matches = append(matches, book)
		}
	}
	return matches
}

// Count returns the number of books in the store.
func (s *Store) Count() int {
	return len(s.books)
}

// Statistics returns the total count and the sorted set of unique authors.
func (s *Store) Statistics() Statistics {
	authors := make(map[string]struct{})
	for _, book := range s.books {
		authors[book.Author] = struct{}{}
	}
	names := make([]string, 0, len(authors))
	for name := range authors {
		names = append(names, name)
	}
	sort.Strings(names)
	return Statistics{
		TotalBooks:    len(s.books),
		UniqueAuthors: len(names),
		Authors:       names,
	}
}

// Clear removes all books and persists the now-empty store. Destructive and
// unconditional; confirmation belongs to the presentation layer.
func (s *Store) Clear() error {
	count := len(s.books)
	s.books = nil
	if err := s.Save(); err != nil {
		return err
	}
	s.log.Warnw("cleared library", "removed", count)
	return nil
}

// SetTitle rewrites the title of the book with the given ISBN and persists.
func (s *Store) SetTitle(isbn, title string) (Book, error) {
	return s.update(isbn, func(b *Book) error {
		title = strings.TrimSpace(title)
		if title == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		b.Title = title
		return nil
	})
}

// SetAuthor rewrites the author of the book with the given ISBN and persists.
func (s *Store) SetAuthor(isbn, author string) (Book, error) {
	return s.update(isbn, func(b *Book) error {
		author = strings.TrimSpace(author)
		if author == "" {
			return fmt.Errorf("%w: author cannot be empty", ErrValidation)
		}
		b.Author = author
		return nil
	})
}

// SetGenre rewrites the genre of the book with the given ISBN and persists.
// An empty value clears the genre.
func (s *Store) SetGenre(isbn, genre string) (Book, error) {
	return s.update(isbn, func(b *Book) error {
		b.Genre = strings.TrimSpace(genre)
		return nil
	})
}

func (s *Store) update(isbn string, apply func(*Book) error) (Book, error) {
	i := s.indexOf(isbn)
	if i < 0 {
		return Book{}, fmt.Errorf("%w: no book with ISBN %s", ErrNotFound, isbn)
	}
	if err := apply(&s.books[i]); err != nil {
		return Book{}, err
	}
	if err := s.Save(); err != nil {
		return Book{}, err
	}
	return s.books[i], nil
}

// Scoped runs fn and performs a final save on every exit path, even when fn
// returns an error after mutating the store. A save failure is only surfaced
// when fn itself succeeded.
func (s *Store) Scoped(fn func(*Store) error) error {
	fnErr := fn(s)
	if err := s.Save(); err != nil {
		s.log.Errorw("final save failed", "path", s.path, "error", err)
		if fnErr == nil {
			return err
		}
	}
	return fnErr
}

// Save rewrites the backing file as a JSON array of books in store order.
// If a file already exists it is renamed to <path>.backup first, overwriting
// any prior backup. The backup always reflects the second-most-recent save.
func (s *Store) Save() error {
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+".backup"); err != nil {
			return fmt.Errorf("create backup: %w", err)
		}
	}

	books := s.books
	if books == nil {
		books = []Book{}
	}
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write library file: %w", err)
	}
	s.log.Debugw("saved library", "path", s.path, "books", len(s.books))
	return nil
}

// load reads the backing file. Missing file means a fresh store; any parse
// or validation failure is logged and the store starts empty. The bad file
// is left in place untouched.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Infow("no existing library file, starting fresh", "path", s.path)
		} else {
			s.log.Errorw("failed to read library file, starting empty", "path", s.path, "error", err)
		}
		s.books = nil
		return
	}

	var records []Book
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Errorw("failed to parse library file, starting empty", "path", s.path, "error", err)
		s.books = nil
		return
	}

	books := make([]Book, 0, len(records))
	for _, r := range records {
		book, err := NewBook(r.Title, r.Author, r.ISBN, r.Genre)
		if err != nil {
			s.log.Errorw("invalid record in library file, starting empty", "path", s.path, "error", err)
			s.books = nil
			return
		}
		books = append(books, book)
	}
	s.books = books
}

func (s *Store) indexOf(key string) int {
	for i, book := range s.books {
		if book.Key() == key {
			return i
		}
	}
	return -1
}
