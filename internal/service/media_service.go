package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"promptdoumi/internal/middleware"
	"promptdoumi/internal/models"
	"promptdoumi/internal/observability"
	"promptdoumi/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	DefaultMediaBucket     = "gallery"
	DefaultMaxUploadSizeMB = 20
	PreviewMaxSize         = 640
	PreviewWebPQuality     = 70
	maxPreviewSourcePixels = 40_000_000
)

// UploadInput is one file handed over by the gallery form.
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Uploaded describes a stored media object.
type Uploaded struct {
	Name        string
	URL         string
	PreviewURL  string
	Kind        models.MediaKind
	ContentType string
	Size        int64
}

// MediaService stores gallery media through the object storage collaborator.
type MediaService struct {
	store    storage.ObjectStore
	bucket   string
	maxBytes int64
}

func NewMediaService(store storage.ObjectStore, bucket string, maxBytes int64) *MediaService {
	if bucket == "" {
		bucket = DefaultMediaBucket
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadSizeMB * 1024 * 1024
	}
	return &MediaService{store: store, bucket: bucket, maxBytes: maxBytes}
}

// Bucket is the bucket gallery media is stored in.
func (s *MediaService) Bucket() string {
	return s.bucket
}

// Upload stores in under a fresh object name and returns its public URL.
// Storage failures come back as collaborator errors carrying the storage
// message unchanged. Images that can be decoded also get a WebP preview;
// a failed preview is logged and skipped.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*Uploaded, error) {
	if len(in.Data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Data)) > s.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	ctx, span := observability.StartSpan(ctx, "MediaService", "Upload")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	contentType := normalizeContentType(in.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeContentType(http.DetectContentType(in.Data))
	}
	kind := DetectMediaKind(in.ContentType, in.Data)

	name := storage.NewObjectName(in.Filename)
	if err = s.store.Upload(ctx, s.bucket, name, contentType, in.Data); err != nil {
		return nil, models.NewCollaboratorError(err)
	}

	out := &Uploaded{
		Name:        name,
		URL:         s.store.PublicURL(s.bucket, name),
		Kind:        kind,
		ContentType: contentType,
		Size:        int64(len(in.Data)),
	}
	observability.UploadBytes.WithLabelValues(string(kind)).Observe(float64(out.Size))

	if kind == models.MediaKindImage {
		out.PreviewURL = s.storePreview(ctx, name, in.Data)
	}
	return out, nil
}

// Remove deletes the objects behind a media URL and its preview, if they
// live in this service's bucket. Failures are logged only.
func (s *MediaService) Remove(ctx context.Context, publicBase, mediaURL, previewURL string) {
	for _, u := range []string{mediaURL, previewURL} {
		if u == "" {
			continue
		}
		name, ok := storage.NameFromURL(publicBase, s.bucket, u)
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, s.bucket, name); err != nil {
			middleware.Logger.WarnContext(ctx, "media cleanup failed",
				slog.String("object", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *MediaService) storePreview(ctx context.Context, name string, data []byte) string {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width*cfg.Height > maxPreviewSourcePixels {
		return ""
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	encoded, err := encodeWebP(resizeToFit(decoded, PreviewMaxSize, PreviewMaxSize), PreviewWebPQuality)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "preview encoding failed", slog.String("object", name), slog.String("error", err.Error()))
		return ""
	}

	previewName := storage.PreviewName(name)
	if err := s.store.Upload(ctx, s.bucket, previewName, "image/webp", encoded); err != nil {
		middleware.Logger.WarnContext(ctx, "preview upload failed", slog.String("object", previewName), slog.String("error", err.Error()))
		return ""
	}
	return s.store.PublicURL(s.bucket, previewName)
}

// DetectMediaKind returns image when the declared or sniffed content type
// is an image type, file otherwise.
func DetectMediaKind(declared string, data []byte) models.MediaKind {
	if strings.HasPrefix(normalizeContentType(declared), "image") {
		return models.MediaKindImage
	}
	if len(data) > 0 && strings.HasPrefix(http.DetectContentType(data), "image/") {
		return models.MediaKindImage
	}
	return models.MediaKindFile
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
