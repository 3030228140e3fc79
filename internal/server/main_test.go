package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"promptdoumi/internal/config"
	"promptdoumi/internal/database"
	"promptdoumi/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-key-12345678901234567890123456789012"
	testPassword = "Sup3r-Secret!pw"
)

func testConfig(t *testing.T, flags string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               "0",
		Env:                "test",
		DBDriver:           "sqlite",
		SQLitePath:         ":memory:",
		JWTSecret:          testSecret,
		AllowedOrigins:     "http://localhost:5173",
		FeatureFlags:       flags,
		MediaRoot:          t.TempDir(),
		MediaBucket:        "gallery",
		MediaPublicBaseURL: "/media",
		MediaMaxUploadMB:   5,
	}
}

// newTestServer returns a server on in-memory SQLite and miniredis.
func newTestServer(t *testing.T, flags string) (*Server, *fiber.App) {
	t.Helper()
	cfg := testConfig(t, flags)

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return s, s.NewApp()
}

func do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 120, B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// galleryForm builds a multipart gallery form; an empty filename omits the file.
func galleryForm(t *testing.T, method, target string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func asClient(req *http.Request, clientID string) *http.Request {
	req.Header.Set("X-Client-ID", clientID)
	return req
}

func asAdmin(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// failingStore rejects every upload with a fixed collaborator message.
type failingStore struct{}

func (failingStore) Upload(context.Context, string, string, string, []byte) error {
	return errors.New("Payload too large")
}
func (failingStore) PublicURL(bucket, name string) string { return "/media/" + bucket + "/" + name }
func (failingStore) Delete(context.Context, string, string) error {
	return nil
}

func withFailingStorage(s *Server) *fiber.App {
	s.mediaService = service.NewMediaService(failingStore{}, "gallery", s.config.MaxUploadBytes())
	s.galleryService = service.NewGalleryService(s.galleryRepo, s.mediaService, s.config.MediaPublicBaseURL)
	return s.NewApp()
}
