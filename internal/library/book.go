package library

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an operation targets an ISBN that is not in the store.
var ErrNotFound = errors.New("book not found")

// ErrDuplicate is returned when adding a book whose ISBN is already present.
var ErrDuplicate = errors.New("book already exists")

// ErrValidation is returned when a required book field is empty or whitespace-only.
var ErrValidation = errors.New("invalid book")

// Book represents a single catalog record. The ISBN acts as the unique key;
// two books with the same ISBN are the same record regardless of title.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
	Genre  string `json:"genre,omitempty"`
}

// NewBook constructs a validated Book. Title, author and ISBN must be
// non-empty after trimming; genre is optional.
func NewBook(title, author, isbn, genre string) (Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	isbn = strings.TrimSpace(isbn)
	if title == "" {
		return Book{}, fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if author == "" {
		return Book{}, fmt.Errorf("%w: author cannot be empty", ErrValidation)
	}
	if isbn == "" {
		return Book{}, fmt.Errorf("%w: ISBN cannot be empty", ErrValidation)
	}
	return Book{
		Title:  title,
		Author: author,
		ISBN:   isbn,
		Genre:  strings.TrimSpace(genre),
	}, nil
}

// Key returns the identity of the record. Store lookups and dedup checks go
// through this rather than whole-struct comparison.
func (b Book) Key() string {
	return b.ISBN
}

func (b Book) String() string {
	return fmt.Sprintf("%s by %s (ISBN: %s)", b.Title, b.Author, b.ISBN)
}
