package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Shelfmark/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	reviewsByBook := map[string][]int{}
	reviewCount := 0

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixOptions("review:"))
		defer it.Close()

		for it.Seek([]byte("review:")); it.ValidForPrefix([]byte("review:")); it.Next() {
			item := it.Item()
			if isIndexKey(string(item.Key()), "review:") {
				continue
			}

			err := item.Value(func(val []byte) error {
				var review domain.Review
				if err := json.Unmarshal(val, &review); err != nil {
					return err
				}
				reviewsByBook[review.BookID] = append(reviewsByBook[review.BookID], review.Rating)
				reviewCount++
				return nil
			})
			if err != nil {
				log.Printf("Error reading review %s: %v", item.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating reviews: %v", err)
	}

	bookCount := 0
	booksWithReviews := 0
	shown := 0

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(prefixOptions("book:"))
		defer it.Close()

		for it.Seek([]byte("book:")); it.ValidForPrefix([]byte("book:")); it.Next() {
			item := it.Item()
			if isIndexKey(string(item.Key()), "book:") {
				continue
			}

			err := item.Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}

				bookCount++
				ratings := reviewsByBook[book.ID]
				if len(ratings) > 0 {
					booksWithReviews++
				}

				if shown < 5 {
					shown++
					fmt.Printf("Book: %s\n", book.Title)
					fmt.Printf("  ID: %s\n", book.ID)
					fmt.Printf("  Author: %s\n", book.Author)
					fmt.Printf("  Category: %s\n", book.CategoryID)
					fmt.Printf("  Has cover: %v\n", book.HasCover())
					if len(ratings) > 0 {
						sum := 0
						for _, r := range ratings {
							sum += r
						}
						fmt.Printf("  Reviews: %d (avg %.2f)\n", len(ratings), float64(sum)/float64(len(ratings)))
					} else {
						fmt.Printf("  Reviews: none\n")
					}
					fmt.Println()
				}
				return nil
			})
			if err != nil {
				log.Printf("Error reading book %s: %v", item.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating books: %v", err)
	}

	categoryCount := countEntities(db, "category:")
	userCount := countEntities(db, "user:")

	fmt.Println("=== Summary ===")
	fmt.Printf("Total books: %d\n", bookCount)
	fmt.Printf("Books with reviews: %d\n", booksWithReviews)
	fmt.Printf("Total reviews: %d\n", reviewCount)
	fmt.Printf("Total categories: %d\n", categoryCount)
	fmt.Printf("Total users: %d\n", userCount)
	if booksWithReviews > 0 {
		fmt.Printf("Average reviews per reviewed book: %.1f\n", float64(reviewCount)/float64(booksWithReviews))
	}
}

func prefixOptions(prefix string) badger.IteratorOptions {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	return opts
}

// isIndexKey reports whether key is a secondary index entry under the
// entity prefix rather than a primary record.
func isIndexKey(key, prefix string) bool {
	return strings.HasPrefix(key[len(prefix):], "idx:")
}

func countEntities(db *badger.DB, prefix string) int {
	count := 0
	_ = db.View(func(txn *badger.Txn) error {
		opts := prefixOptions(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if !isIndexKey(string(it.Item().Key()), prefix) {
				count++
			}
		}
		return nil
	})
	return count
}
