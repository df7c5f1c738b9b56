package library

import (
	"context"

	"github.com/sarpowsky/booklib/internal/platform/openlibrary"
)

// LookupClient resolves an ISBN to normalized book data from an external catalog.
type LookupClient interface {
	FetchByISBN(ctx context.Context, isbn string) (openlibrary.BookData, error)
}
