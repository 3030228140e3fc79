package server

import (
	"errors"
	"io"

	"promptdoumi/internal/identity"
	"promptdoumi/internal/models"
	"promptdoumi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GalleryForm echoes the submitted text fields so a failed submit can be
// retried without retyping.
type GalleryForm struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	AuthorName string `json:"author_name"`
}

// SubmissionResponse is returned by create and update, successful or not.
type SubmissionResponse struct {
	Error      string              `json:"error,omitempty"`
	Code       string              `json:"code,omitempty"`
	Redirect   string              `json:"redirect,omitempty"`
	Submission *service.Submission `json:"submission"`
	Form       *GalleryForm        `json:"form,omitempty"`
}

// GalleryListResponse is one page of the gallery.
type GalleryListResponse struct {
	Posts  []*models.GalleryPostView `json:"posts"`
	Total  int64                     `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// EditResponse pre-fills the edit form.
type EditResponse struct {
	Post *models.GalleryPost `json:"post"`
	Form GalleryForm         `json:"form"`
}

// GetGalleryPosts handles GET /api/gallery
// @Summary List gallery posts
// @Description Newest first
// @Tags gallery
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} GalleryListResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /gallery [get]
func (s *Server) GetGalleryPosts(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)
	posts, total, err := s.galleryService.List(c.UserContext(), page.Limit, page.Offset,
		identity.ClientID(c), s.optionalSession(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(GalleryListResponse{Posts: posts, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// GetGalleryPost handles GET /api/gallery/:id
// @Summary Get gallery post
// @Tags gallery
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.GalleryPostView
// @Failure 404 {object} models.ErrorResponse
// @Router /gallery/{id} [get]
func (s *Server) GetGalleryPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.galleryService.Get(c.UserContext(), id, identity.ClientID(c), s.optionalSession(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(view)
}

// GetGalleryPostForEdit handles GET /api/gallery/:id/edit
// @Summary Load edit form
// @Description Only the owner or an admin may open the edit form
// @Tags gallery
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} EditResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /gallery/{id}/edit [get]
func (s *Server) GetGalleryPostForEdit(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.galleryService.Authorize(c.UserContext(), id, identity.ClientID(c), s.optionalSession(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(EditResponse{
		Post: post,
		Form: GalleryForm{Title: post.Title, Content: post.Content, AuthorName: post.AuthorName},
	})
}

// CreateGalleryPost handles POST /api/gallery
// @Summary Create gallery post
// @Tags gallery
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param content formData string false "Caption"
// @Param author_name formData string true "Author nickname"
// @Param file formData file true "Image or file"
// @Success 201 {object} SubmissionResponse
// @Failure 400 {object} SubmissionResponse
// @Failure 502 {object} SubmissionResponse
// @Router /gallery [post]
func (s *Server) CreateGalleryPost(c *fiber.Ctx) error {
	in, form, err := s.readSubmit(c)
	if err != nil {
		return nil
	}
	sub, err := s.galleryService.Create(c.UserContext(), in)
	if err != nil {
		return respondSubmission(c, sub, form, err)
	}
	c.Location(sub.Location)
	return c.Status(fiber.StatusCreated).JSON(SubmissionResponse{Submission: sub})
}

// UpdateGalleryPost handles PUT /api/gallery/:id
// @Summary Update gallery post
// @Description The file is optional; without one the stored media is kept
// @Tags gallery
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Post ID"
// @Param title formData string true "Title"
// @Param content formData string false "Caption"
// @Param author_name formData string true "Author nickname"
// @Param file formData file false "Replacement media"
// @Success 200 {object} SubmissionResponse
// @Failure 403 {object} SubmissionResponse
// @Router /gallery/{id} [put]
func (s *Server) UpdateGalleryPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	in, form, err := s.readSubmit(c)
	if err != nil {
		return nil
	}
	sub, err := s.galleryService.Update(c.UserContext(), id, in, s.optionalSession(c))
	if err != nil {
		return respondSubmission(c, sub, form, err)
	}
	c.Location(sub.Location)
	return c.JSON(SubmissionResponse{Submission: sub})
}

// DeleteGalleryPost handles DELETE /api/gallery/:id?confirm=true
// @Summary Delete gallery post
// @Description Irreversible; requires confirm=true
// @Tags gallery
// @Produce json
// @Param id path int true "Post ID"
// @Param confirm query bool true "Confirms the deletion"
// @Success 200 {object} object{message=string,redirect=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 428 {object} models.ErrorResponse
// @Router /gallery/{id} [delete]
func (s *Server) DeleteGalleryPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	err = s.galleryService.Delete(c.UserContext(), id, identity.ClientID(c), s.optionalSession(c),
		c.QueryBool("confirm", false))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Post deleted",
		"redirect": "/gallery",
	})
}

// readSubmit parses the multipart gallery form. On failure it writes a 400
// response and returns errResponseWritten.
func (s *Server) readSubmit(c *fiber.Ctx) (service.SubmitInput, *GalleryForm, error) {
	form := &GalleryForm{
		Title:      c.FormValue("title"),
		Content:    c.FormValue("content"),
		AuthorName: c.FormValue("author_name"),
	}
	in := service.SubmitInput{
		Title:      form.Title,
		Content:    form.Content,
		AuthorName: form.AuthorName,
		ClientID:   identity.ClientID(c),
		Store:      identity.StoreFrom(c),
	}

	// A missing file part is not an error here; the service decides
	// whether the form needs one.
	file, err := c.FormFile("file")
	if err != nil {
		return in, form, nil
	}

	src, err := file.Open()
	if err != nil {
		_ = respondSubmission(c, nil, form, models.NewValidationError("Unable to read uploaded file"))
		return in, form, errResponseWritten
	}
	defer func() { _ = src.Close() }()

	data, err := io.ReadAll(src)
	if err != nil {
		_ = respondSubmission(c, nil, form, models.NewValidationError("Unable to read uploaded file"))
		return in, form, errResponseWritten
	}

	in.File = &service.UploadInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}
	return in, form, nil
}

func respondSubmission(c *fiber.Ctx, sub *service.Submission, form *GalleryForm, err error) error {
	resp := SubmissionResponse{Submission: sub, Form: form}
	resp.Error = err.Error()
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		resp.Error = appErr.Message
		resp.Code = appErr.Code
		resp.Redirect = appErr.Redirect
	}
	return c.Status(models.StatusFor(err)).JSON(resp)
}
