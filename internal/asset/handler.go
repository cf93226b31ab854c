// Package asset stores the raster images that image items reference.
package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/inkslate/inkslate/backend-go/internal/document"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
	"github.com/inkslate/inkslate/backend-go/internal/typeid"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	// Larger images are scaled down on upload.
	maxEdge = 2048
)

type UploadResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Name   string `json:"name"`
	// Item is an uncommitted image item at the origin, sized to the stored
	// image, ready to submit with item.add.
	Item document.ItemNode `json:"item"`
}

type Handler struct {
	dir string
}

// NewHandler creates a handler that stores files in dir.
func NewHandler(dir string) (*Handler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Handler{dir: dir}, nil
}

// Upload handles POST /assets (multipart form with a "file" field). Every
// accepted image is stored as PNG.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported or invalid image"})
		return
	}
	img = fit(img, maxEdge)

	bounds := img.Bounds()
	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	if err := h.write(filename, img); err != nil {
		slog.Error("store asset", "error", err, "asset", assetID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}

	url := "/assets/" + filename
	node, err := document.EncodeItem(item.NewImage(url,
		geom.Rect{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}, 0, 1))
	if err != nil {
		slog.Error("encode image item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		ID:     assetID,
		URL:    url,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Name:   header.Filename,
		Item:   node,
	})
}

func (h *Handler) write(filename string, img image.Image) error {
	path := filepath.Join(h.dir, filename)
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

// Serve returns an http.Handler for stored assets. Asset ids are unique, so
// files are immutable.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// fit scales img down so neither edge exceeds edge pixels.
func fit(img image.Image, edge int) image.Image {
	b := img.Bounds()
	w, hgt := b.Dx(), b.Dy()
	if w <= edge && hgt <= edge {
		return img
	}
	if w >= hgt {
		hgt = max(1, hgt*edge/w)
		w = edge
	} else {
		w = max(1, w*edge/hgt)
		hgt = edge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, hgt))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
