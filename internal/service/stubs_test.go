package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"promptdoumi/internal/models"

	"gorm.io/gorm"
)

// galleryRepoStub is a stub for repository.GalleryRepository.
type galleryRepoStub struct {
	createFn  func(context.Context, *models.GalleryPost) error
	getByIDFn func(context.Context, uint) (*models.GalleryPost, error)
	listFn    func(context.Context, int, int) ([]*models.GalleryPost, error)
	countFn   func(context.Context) (int64, error)
	updateFn  func(context.Context, *models.GalleryPost) error
	deleteFn  func(context.Context, uint) error

	createCalls int
	updateCalls int
	deleteCalls int
}

func (s *galleryRepoStub) Create(ctx context.Context, post *models.GalleryPost) error {
	s.createCalls++
	return s.createFn(ctx, post)
}
func (s *galleryRepoStub) GetByID(ctx context.Context, id uint) (*models.GalleryPost, error) {
	return s.getByIDFn(ctx, id)
}
func (s *galleryRepoStub) List(ctx context.Context, limit, offset int) ([]*models.GalleryPost, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *galleryRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *galleryRepoStub) Update(ctx context.Context, post *models.GalleryPost) error {
	s.updateCalls++
	return s.updateFn(ctx, post)
}
func (s *galleryRepoStub) Delete(ctx context.Context, id uint) error {
	s.deleteCalls++
	return s.deleteFn(ctx, id)
}

func noopGalleryRepo() *galleryRepoStub {
	return &galleryRepoStub{
		createFn: func(_ context.Context, p *models.GalleryPost) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, _ uint) (*models.GalleryPost, error) { return nil, gorm.ErrRecordNotFound },
		listFn:    func(_ context.Context, _, _ int) ([]*models.GalleryPost, error) { return nil, nil },
		countFn:   func(_ context.Context) (int64, error) { return 0, nil },
		updateFn:  func(_ context.Context, _ *models.GalleryPost) error { return nil },
		deleteFn:  func(_ context.Context, _ uint) error { return nil },
	}
}

// mediaStub is a stub for MediaUploader.
type mediaStub struct {
	uploadFn func(context.Context, UploadInput) (*Uploaded, error)

	uploadCalls int
	removed     []string
}

func (m *mediaStub) Upload(ctx context.Context, in UploadInput) (*Uploaded, error) {
	m.uploadCalls++
	return m.uploadFn(ctx, in)
}

func (m *mediaStub) Remove(_ context.Context, _ string, mediaURL, previewURL string) {
	m.removed = append(m.removed, mediaURL, previewURL)
}

func imageUpload() *mediaStub {
	return &mediaStub{uploadFn: func(_ context.Context, in UploadInput) (*Uploaded, error) {
		return &Uploaded{
			Name: "01new.png",
			URL:  "/media/gallery/01new.png",
			Kind: DetectMediaKind(in.ContentType, in.Data),
		}, nil
	}}
}

// memoryObjectStore is an in-memory storage.ObjectStore.
type memoryObjectStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: make(map[string][]byte)}
}

func (m *memoryObjectStore) Upload(_ context.Context, bucket, name, _ string, data []byte) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := bucket + "/" + name
	if _, ok := m.objects[key]; ok {
		return errors.New("The resource already exists")
	}
	m.objects[key] = data
	return nil
}

func (m *memoryObjectStore) PublicURL(bucket, name string) string {
	return "/media/" + bucket + "/" + name
}

func (m *memoryObjectStore) Delete(_ context.Context, bucket, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+name)
	return nil
}

func (m *memoryObjectStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func strPtr(s string) *string { return &s }

// memoryAdminRepo is an in-memory repository.AdminUserRepository.
type memoryAdminRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.AdminUser
	getErr error
}

func newMemoryAdminRepo() *memoryAdminRepo {
	return &memoryAdminRepo{nextID: 1, users: make(map[uint]*models.AdminUser)}
}

func (r *memoryAdminRepo) Create(_ context.Context, user *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return errors.New("UNIQUE constraint failed: admin_users.email")
		}
	}
	user.ID = r.nextID
	r.nextID++
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryAdminRepo) GetByID(_ context.Context, id uint) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryAdminRepo) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryAdminRepo) UpdatePassword(_ context.Context, id uint, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Password = hash
	return nil
}

func (r *memoryAdminRepo) TouchLogin(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (r *memoryAdminRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}
