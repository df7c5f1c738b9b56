package library

import (
	"context"
	"fmt"
)

// Service is the thin facade composed by the CLI and HTTP layers. It routes
// catalog operations to the Store and ISBN enrichment to the lookup client;
// there is no logic here beyond argument plumbing.
type Service struct {
	store  *Store
	lookup LookupClient
}

// NewService creates a service over a store and a lookup client.
func NewService(store *Store, lookup LookupClient) *Service {
	return &Service{store: store, lookup: lookup}
}

// AddByISBN fetches title and author from the external catalog and stores a
// new book under the given ISBN. The genre is left unset. Lookup and format
// errors propagate unchanged.
func (s *Service) AddByISBN(ctx context.Context, isbn string) (Book, error) {
	if _, ok := s.store.Find(isbn); ok {
		return Book{}, fmt.Errorf("%w: ISBN %s", ErrDuplicate, isbn)
	}

	data, err := s.lookup.FetchByISBN(ctx, isbn)
	if err != nil {
		return Book{}, err
	}

	book, err := NewBook(data.Title, data.Author, isbn, "")
	if err != nil {
		return Book{}, err
	}
	if err := s.store.Add(book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// AddManual stores a book from user-supplied fields without any lookup.
func (s *Service) AddManual(title, author, isbn, genre string) (Book, error) {
	return s.store.AddManual(title, author, isbn, genre)
}

func (s *Service) Remove(isbn string) error {
	return s.store.Remove(isbn)
}

func (s *Service) Find(isbn string) (Book, bool) {
	return s.store.Find(isbn)
}

func (s *Service) List() []Book {
	return s.store.List()
}

func (s *Service) Search(query string) []Book {
	return s.store.Search(query)
}

func (s *Service) Count() int {
	return s.store.Count()
}

func (s *Service) Statistics() Statistics {
	return s.store.Statistics()
}

func (s *Service) Clear() error {
	return s.store.Clear()
}

func (s *Service) SetTitle(isbn, title string) (Book, error) {
	return s.store.SetTitle(isbn, title)
}

func (s *Service) SetAuthor(isbn, author string) (Book, error) {
	return s.store.SetAuthor(isbn, author)
}

func (s *Service) SetGenre(isbn, genre string) (Book, error) {
	return s.store.SetGenre(isbn, genre)
}
