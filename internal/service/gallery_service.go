package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"promptdoumi/internal/identity"
	"promptdoumi/internal/middleware"
	"promptdoumi/internal/models"
	"promptdoumi/internal/observability"
	"promptdoumi/internal/render"
	"promptdoumi/internal/repository"
	"promptdoumi/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// SubmissionState is a step of the gallery submit flow.
type SubmissionState string

const (
	StateIdle      SubmissionState = "idle"
	StateUploading SubmissionState = "uploading"
	StateInserting SubmissionState = "inserting"
	StateDone      SubmissionState = "done"
	StateFailed    SubmissionState = "failed"
)

// Submission traces one run of the submit flow.
type Submission struct {
	States   []SubmissionState   `json:"states"`
	State    SubmissionState     `json:"state"`
	Error    string              `json:"error,omitempty"`
	Post     *models.GalleryPost `json:"post,omitempty"`
	Location string              `json:"location,omitempty"`
	Err      error               `json:"-"`
}

func newSubmission() *Submission {
	return &Submission{States: []SubmissionState{StateIdle}, State: StateIdle}
}

func (s *Submission) advance(next SubmissionState) {
	s.States = append(s.States, next)
	s.State = next
}

func (s *Submission) fail(err error) error {
	s.advance(StateFailed)
	s.Err = err
	s.Error = err.Error()
	return err
}

// reject records an error raised before the flow left Idle.
func (s *Submission) reject(err error) error {
	s.Err = err
	s.Error = err.Error()
	return err
}

// MediaUploader is the part of MediaService the gallery flow needs.
type MediaUploader interface {
	Upload(ctx context.Context, in UploadInput) (*Uploaded, error)
	Remove(ctx context.Context, publicBase, mediaURL, previewURL string)
}

// SubmitInput is the gallery form.
type SubmitInput struct {
	Title      string
	Content    string
	AuthorName string
	File       *UploadInput
	// ClientID becomes the owner token of a new post.
	ClientID string
	// Store receives the author nickname after a successful submit.
	Store identity.Store
}

type GalleryService struct {
	repo       repository.GalleryRepository
	media      MediaUploader
	publicBase string
}

func NewGalleryService(repo repository.GalleryRepository, media MediaUploader, publicBase string) *GalleryService {
	return &GalleryService{repo: repo, media: media, publicBase: publicBase}
}

// DetailPath is the read-only detail view of a post.
func DetailPath(id uint) string {
	return fmt.Sprintf("/gallery/%d", id)
}

const galleryListPath = "/gallery"

func validateSubmit(in SubmitInput, requireFile bool) error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.AuthorName) == "" || (requireFile && in.File == nil) {
		if requireFile {
			return models.NewValidationError("Title, author name and file are required")
		}
		return models.NewValidationError("Title and author name are required")
	}
	for _, check := range []error{
		validation.ValidateTitle(in.Title),
		validation.ValidateAuthorName(in.AuthorName),
		validation.ValidateContent(in.Content),
	} {
		if check != nil {
			return models.NewValidationError(check.Error())
		}
	}
	return nil
}

func recordSubmission(op string, sub *Submission) {
	observability.SubmissionsTotal.WithLabelValues(op, string(sub.State)).Inc()
}

// Create runs the submit flow for a new post: validate, upload, insert.
// The returned Submission is never nil; err is the error that stopped the
// flow, if any.
func (s *GalleryService) Create(ctx context.Context, in SubmitInput) (sub *Submission, err error) {
	sub = newSubmission()
	ctx, span := observability.StartSpan(ctx, "GalleryService", "Create")
	defer func() {
		recordSubmission("create", sub)
		observability.EndSpan(span, err)
	}()

	if err := validateSubmit(in, true); err != nil {
		return sub, sub.reject(err)
	}

	sub.advance(StateUploading)
	uploaded, err := s.media.Upload(ctx, *in.File)
	if err != nil {
		return sub, sub.fail(err)
	}

	sub.advance(StateInserting)
	post := &models.GalleryPost{
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		MediaURL:   uploaded.URL,
		PreviewURL: uploaded.PreviewURL,
		MediaType:  uploaded.Kind,
		AuthorName: strings.TrimSpace(in.AuthorName),
	}
	if in.ClientID != "" {
		owner := in.ClientID
		post.OwnerToken = &owner
	}
	if err := s.repo.Create(ctx, post); err != nil {
		// the uploaded object stays behind
		middleware.Logger.WarnContext(ctx, "gallery insert failed after upload",
			slog.String("media_url", uploaded.URL),
			slog.String("error", err.Error()),
		)
		return sub, sub.fail(models.NewCollaboratorError(err))
	}

	s.finish(sub, post, in.Store)
	span.SetAttributes(attribute.Int("gallery.post_id", int(post.ID)))
	return sub, nil
}

// Update runs the submit flow for an edit. Without a new file the upload
// step is skipped and the stored media reference and kind are kept.
func (s *GalleryService) Update(ctx context.Context, id uint, in SubmitInput, session *models.Session) (sub *Submission, err error) {
	sub = newSubmission()
	ctx, span := observability.StartSpan(ctx, "GalleryService", "Update",
		attribute.Int("gallery.post_id", int(id)),
	)
	defer func() {
		recordSubmission("update", sub)
		observability.EndSpan(span, err)
	}()

	post, err := s.Authorize(ctx, id, in.ClientID, session)
	if err != nil {
		return sub, sub.reject(err)
	}
	if err := validateSubmit(in, false); err != nil {
		return sub, sub.reject(err)
	}

	oldMedia, oldPreview := post.MediaURL, post.PreviewURL
	replaced := false
	if in.File != nil {
		sub.advance(StateUploading)
		uploaded, err := s.media.Upload(ctx, *in.File)
		if err != nil {
			return sub, sub.fail(err)
		}
		post.MediaURL = uploaded.URL
		post.PreviewURL = uploaded.PreviewURL
		post.MediaType = uploaded.Kind
		replaced = true
	}

	sub.advance(StateInserting)
	post.Title = strings.TrimSpace(in.Title)
	post.Content = in.Content
	post.AuthorName = strings.TrimSpace(in.AuthorName)
	if err := s.repo.Update(ctx, post); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return sub, sub.fail(models.NewNotFoundError("Gallery post", id))
		}
		return sub, sub.fail(models.NewCollaboratorError(err))
	}

	if replaced {
		s.media.Remove(ctx, s.publicBase, oldMedia, oldPreview)
	}
	s.finish(sub, post, in.Store)
	return sub, nil
}

func (s *GalleryService) finish(sub *Submission, post *models.GalleryPost, store identity.Store) {
	if store != nil {
		identity.RememberNickname(store, post.AuthorName)
	}
	sub.Post = post
	sub.Location = DetailPath(post.ID)
	sub.advance(StateDone)
}

// Authorize fetches post id and allows the caller when token owns it or an
// admin session is present. Otherwise it returns a forbidden error that
// points back at the read-only detail view.
func (s *GalleryService) Authorize(ctx context.Context, id uint, token string, session *models.Session) (*models.GalleryPost, error) {
	post, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if identity.IsOwner(post, token) || session != nil {
		return post, nil
	}
	return nil, models.NewForbiddenError("You can only edit or delete your own posts", DetailPath(id))
}

// Delete removes post id after authorization. confirmed must be true; the
// deletion cannot be undone.
func (s *GalleryService) Delete(ctx context.Context, id uint, token string, session *models.Session, confirmed bool) error {
	if !confirmed {
		return models.NewConfirmationRequiredError("Deleting a post cannot be undone; repeat the request with confirm=true")
	}

	post, err := s.Authorize(ctx, id, token, session)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Gallery post", id)
		}
		return models.NewCollaboratorError(err)
	}
	s.media.Remove(ctx, s.publicBase, post.MediaURL, post.PreviewURL)
	middleware.Logger.InfoContext(ctx, "gallery post deleted",
		slog.Uint64("post_id", uint64(id)),
		slog.Bool("by_admin", session != nil && !identity.IsOwner(post, token)),
	)
	return nil
}

// Get returns the detail view of post id for the given requester.
func (s *GalleryService) Get(ctx context.Context, id uint, token string, session *models.Session) (*models.GalleryPostView, error) {
	post, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.view(post, token, session)
	html, err := render.ContentHTML(post.Content)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "content rendering failed", slog.Uint64("post_id", uint64(id)), slog.String("error", err.Error()))
	} else {
		view.ContentHTML = html
	}
	return view, nil
}

// List returns a page of posts, newest first, as seen by the requester.
func (s *GalleryService) List(ctx context.Context, limit, offset int, token string, session *models.Session) ([]*models.GalleryPostView, int64, error) {
	posts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, models.NewCollaboratorError(err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, models.NewCollaboratorError(err)
	}
	views := make([]*models.GalleryPostView, len(posts))
	for i, p := range posts {
		views[i] = s.view(p, token, session)
	}
	return views, total, nil
}

func (s *GalleryService) view(post *models.GalleryPost, token string, session *models.Session) *models.GalleryPostView {
	owner := identity.IsOwner(post, token)
	return &models.GalleryPostView{
		GalleryPost: post,
		IsOwner:     owner,
		CanEdit:     owner || session != nil,
	}
}

func (s *GalleryService) fetch(ctx context.Context, id uint) (*models.GalleryPost, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			nf := models.NewNotFoundError("Gallery post", id)
			nf.Redirect = galleryListPath
			return nil, nf
		}
		return nil, models.NewCollaboratorError(err)
	}
	return post, nil
}
