package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarpowsky/booklib/internal/library"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <isbn>",
		Short: "Add a book by ISBN, fetching title and author from Open Library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *library.Service) error {
				book, err := svc.AddByISBN(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", book)
				return nil
			})
		},
	}
}

func newAddManualCmd(a *app) *cobra.Command {
	var title, author, isbn, genre string

	cmd := &cobra.Command{
		Use:   "add-manual",
		Short: "Add a book from explicit title/author/ISBN",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *library.Service) error {
				book, err := svc.AddManual(title, author, isbn, genre)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", book)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringVar(&author, "author", "", "book author")
	cmd.Flags().StringVar(&isbn, "isbn", "", "book ISBN")
	cmd.Flags().StringVar(&genre, "genre", "", "book genre (optional)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("isbn")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <isbn>",
		Short: "Remove a book by ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *library.Service) error {
				book, ok := svc.Find(args[0])
				if err := svc.Remove(args[0]); err != nil {
					return err
				}
				if ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", book)
				}
				return nil
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all books",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *library.Service) error {
				books := svc.List()
				if len(books) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Library is empty.")
					return nil
				}
				printBooks(cmd, books)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d book(s)\n", len(books))
				return nil
			})
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search books by title, author or ISBN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *library.Service) error {
				query := strings.Join(args, " ")
				books := svc.Search(query)
				if len(books) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No books found matching: %s\n", query)
					return nil
				}
				printBooks(cmd, books)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d match(es)\n", len(books))
				return nil
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *library.Service) error {
				stats := svc.Statistics()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total books:    %d\n", stats.TotalBooks)
				fmt.Fprintf(out, "Unique authors: %d\n", stats.UniqueAuthors)
				fmt.Fprintf(out, "Storage file:   %s\n", a.cfg.DataFile)
				for _, author := range stats.Authors {
					fmt.Fprintf(out, "  - %s\n", author)
				}
				return nil
			})
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all books from the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the library without --yes")
			}
			return a.withService(func(svc *library.Service) error {
				count := svc.Count()
				if err := svc.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d book(s)\n", count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the library")
	return cmd
}

func printBooks(cmd *cobra.Command, books []library.Book) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tAUTHOR\tISBN\tGENRE")
	for _, book := range books {
		genre := book.Genre
		if genre == "" {
			genre = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", book.Title, book.Author, book.ISBN, genre)
	}
	w.Flush()
}
