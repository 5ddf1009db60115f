// Package main provides a tool to seed the database with demo catalog data.
//
// This creates a handful of categories, books, users, and reviews so the
// catalog, search, and rating features can be exercised against real data.
//
// Usage:
//
//	DB_PATH=~/Shelfmark/data/db go run ./cmd/seed
//	DB_PATH=~/Shelfmark/data/db go run ./cmd/seed --create-users  # Also create demo reviewers
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/shelfmarkapp/shelfmark-server/internal/auth"
	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/id"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

var createUsers = flag.Bool("create-users", false, "Create demo reviewer accounts")

type seedBook struct {
	title       string
	author      string
	category    string
	description string
}

var seedCategories = []struct {
	name        string
	description string
}{
	{"Science Fiction", "Speculative futures, space, and technology."},
	{"Fantasy", "Magic, myth, and invented worlds."},
	{"Non-fiction", "History, science, and reportage."},
	{"Mystery", "Crime, detection, and suspense."},
}

var seedBooks = []seedBook{
	{"Dune", "Frank Herbert", "Science Fiction", "A desert planet, a noble house, and the spice that keeps the universe running."},
	{"The Left Hand of Darkness", "Ursula K. Le Guin", "Science Fiction", "An envoy's mission to a world whose people have no fixed sex."},
	{"A Wizard of Earthsea", "Ursula K. Le Guin", "Fantasy", "A young mage looses a shadow on the world and must hunt it down."},
	{"The Name of the Wind", "Patrick Rothfuss", "Fantasy", "An innkeeper recounts how he became the most notorious wizard of his age."},
	{"The Soul of a New Machine", "Tracy Kidder", "Non-fiction", "The race inside Data General to build a 32-bit minicomputer."},
	{"Gaudy Night", "Dorothy L. Sayers", "Mystery", "Poison-pen letters disturb an Oxford women's college."},
	{"The Dispossessed", "Ursula K. Le Guin", "", "A physicist travels between an anarchist moon and its capitalist mother world."},
}

var seedReviewers = []struct {
	email string
	name  string
}{
	{"ada@example.com", "Ada"},
	{"grace@example.com", "Grace"},
	{"edsger@example.com", "Edsger"},
}

var seedComments = []string{
	"Couldn't put it down.",
	"Slow start but worth the patience.",
	"Re-read this every few years.",
	"Not for me, but I can see the appeal.",
	"The ending lands perfectly.",
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/Shelfmark/data/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	categoryIDs := seedCategoryData(ctx, s)
	bookIDs := seedBookData(ctx, s, categoryIDs)

	if *createUsers {
		userIDs := seedReviewerData(ctx, s)
		seedReviewData(ctx, s, bookIDs, userIDs)
	}

	fmt.Println("Done.")
}

// seedCategoryData creates the demo categories, reusing any that already exist.
func seedCategoryData(ctx context.Context, s *store.Store) map[string]string {
	ids := make(map[string]string, len(seedCategories))
	for _, sc := range seedCategories {
		if existing, err := s.Categories.GetByIndex(ctx, "name", sc.name); err == nil {
			ids[sc.name] = existing.ID
			continue
		}

		categoryID, err := id.Generate("category")
		if err != nil {
			log.Fatalf("Failed to generate category ID: %v", err)
		}
		category := &domain.Category{Name: sc.name, Description: sc.description}
		category.ID = categoryID
		category.InitTimestamps()

		if err := s.Categories.Create(ctx, categoryID, category); err != nil {
			log.Fatalf("Failed to create category %q: %v", sc.name, err)
		}
		ids[sc.name] = categoryID
		fmt.Printf("Created category: %s\n", sc.name)
	}
	return ids
}

// seedBookData creates the demo books. Books are keyed by title for the
// review pass; duplicate titles across runs are not deduplicated.
func seedBookData(ctx context.Context, s *store.Store, categoryIDs map[string]string) []string {
	bookIDs := make([]string, 0, len(seedBooks))
	for _, sb := range seedBooks {
		bookID, err := id.Generate("book")
		if err != nil {
			log.Fatalf("Failed to generate book ID: %v", err)
		}

		book := &domain.Book{
			Title:       sb.title,
			Author:      sb.author,
			CategoryID:  categoryIDs[sb.category],
			Description: sb.description,
		}
		book.ID = bookID
		book.InitTimestamps()

		if err := s.CreateBook(ctx, book); err != nil {
			log.Fatalf("Failed to create book %q: %v", sb.title, err)
		}
		bookIDs = append(bookIDs, bookID)
		fmt.Printf("Created book: %s by %s\n", sb.title, sb.author)
	}
	return bookIDs
}

// seedReviewerData creates demo reviewer accounts with the password "password123".
func seedReviewerData(ctx context.Context, s *store.Store) []string {
	hash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	userIDs := make([]string, 0, len(seedReviewers))
	for _, r := range seedReviewers {
		if existing, err := s.GetUserByEmail(ctx, r.email); err == nil {
			userIDs = append(userIDs, existing.ID)
			continue
		}

		userID, err := id.Generate("user")
		if err != nil {
			log.Fatalf("Failed to generate user ID: %v", err)
		}
		user := &domain.User{
			Email:        r.email,
			PasswordHash: hash,
			DisplayName:  r.name,
		}
		user.ID = userID
		user.InitTimestamps()

		if err := s.Users.Create(ctx, userID, user); err != nil {
			log.Fatalf("Failed to create user %q: %v", r.email, err)
		}
		userIDs = append(userIDs, userID)
		fmt.Printf("Created user: %s (%s)\n", r.name, r.email)
	}
	return userIDs
}

// seedReviewData leaves each reviewer's opinion on a random spread of books.
func seedReviewData(ctx context.Context, s *store.Store, bookIDs, userIDs []string) {
	created := 0
	for _, userID := range userIDs {
		for _, bookID := range bookIDs {
			// Roughly two thirds of the catalog per reviewer.
			if rand.Intn(3) == 0 {
				continue
			}

			reviewID, err := id.Generate("review")
			if err != nil {
				log.Fatalf("Failed to generate review ID: %v", err)
			}
			review := &domain.Review{
				BookID:  bookID,
				UserID:  userID,
				Rating:  2 + rand.Intn(4),
				Comment: seedComments[rand.Intn(len(seedComments))],
			}
			review.ID = reviewID
			review.InitTimestamps()

			if err := s.CreateReview(ctx, review); err != nil {
				// Re-running seed hits the one-review-per-user rule; skip quietly.
				continue
			}
			created++
		}
	}
	fmt.Printf("Created %d reviews\n", created)
}
