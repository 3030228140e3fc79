// Package seed provides helpers to create demo gallery data. These helpers
// are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"promptdoumi/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options controls what the seeder generates.
type Options struct {
	NumPosts int
	// NumClients is how many distinct owner tokens the posts are spread over.
	NumClients int
	// OwnerlessRatio is the share of posts created without an owner token,
	// like entries that predate client identities.
	OwnerlessRatio float64
	// FileRatio is the share of posts whose media is a plain file.
	FileRatio float64
	MaxDays   int
	DryRun    bool
}

// DefaultOptions is a small, mixed gallery.
var DefaultOptions = Options{
	NumPosts:       40,
	NumClients:     8,
	OwnerlessRatio: 0.1,
	FileRatio:      0.15,
	MaxDays:        60,
}

var fileExtensions = []string{"pdf", "txt", "zip", "md"}

// Seeder writes generated gallery posts.
type Seeder struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewSeeder creates a seeder bound to db. A zero seed picks a random one.
func NewSeeder(db *gorm.DB, opts Options, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Seeder{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

// Clients returns the owner tokens the seeder assigns, so a developer can
// act as one of them through the X-Client-ID header.
func (s *Seeder) Clients() []string {
	n := s.opts.NumClients
	if n <= 0 {
		n = 1
	}
	out := make([]string, n)
	for i := range out {
		out[i] = uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "prompt-doumi-seed-%d", i)).String()
	}
	return out
}

// BuildPost constructs one gallery post without persisting it.
func (s *Seeder) BuildPost(clients []string, overrides ...func(*models.GalleryPost)) *models.GalleryPost {
	post := &models.GalleryPost{
		Title:      gofakeit.Sentence(4),
		Content:    gofakeit.Paragraph(1, 2, 8, "\n\n"),
		AuthorName: gofakeit.Username(),
		MediaType:  models.MediaKindImage,
	}
	if len(post.AuthorName) > 30 {
		post.AuthorName = post.AuthorName[:30]
	}

	maxDays := s.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	post.CreatedAt = time.Now().Add(-time.Duration(s.rng.Intn(maxDays*24*60)) * time.Minute)
	post.UpdatedAt = post.CreatedAt

	if s.rng.Float64() < s.opts.FileRatio {
		post.MediaType = models.MediaKindFile
		ext := fileExtensions[s.rng.Intn(len(fileExtensions))]
		post.MediaURL = fmt.Sprintf("https://example.com/files/%s.%s", gofakeit.UUID(), ext)
	} else {
		seed := gofakeit.UUID()
		post.MediaURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", seed)
		post.PreviewURL = fmt.Sprintf("https://picsum.photos/seed/%s/320/320", seed)
	}

	if len(clients) > 0 && s.rng.Float64() >= s.opts.OwnerlessRatio {
		owner := clients[s.rng.Intn(len(clients))]
		post.OwnerToken = &owner
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// SeedGallery creates NumPosts posts and returns them.
func (s *Seeder) SeedGallery() ([]*models.GalleryPost, error) {
	clients := s.Clients()
	posts := make([]*models.GalleryPost, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		posts = append(posts, s.BuildPost(clients))
	}
	if len(posts) == 0 {
		return posts, nil
	}

	if s.opts.DryRun {
		for _, p := range posts {
			s.nextID++
			p.ID = s.nextID
		}
		log.Printf("[dry-run] SeedGallery: %d posts (no DB write)", len(posts))
		return posts, nil
	}

	if err := s.db.CreateInBatches(posts, 100).Error; err != nil {
		return nil, fmt.Errorf("create gallery posts: %w", err)
	}
	log.Printf("Seeded %d gallery posts across %d clients", len(posts), len(clients))
	return posts, nil
}

// ClearGallery deletes every gallery post.
func (s *Seeder) ClearGallery() error {
	if s.opts.DryRun {
		log.Println("[dry-run] ClearGallery")
		return nil
	}
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.GalleryPost{}).Error
}
