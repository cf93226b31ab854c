package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/document"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/session"
	"github.com/inkslate/inkslate/backend-go/internal/store"
)

var ErrNotFound = errors.New("canvas not found")

// Store is the part of store.Postgres the API needs.
type Store interface {
	CreateCanvas(ctx context.Context, name string, doc []byte) (*store.Canvas, error)
	GetCanvas(ctx context.Context, canvasID string) (*store.Canvas, error)
	ListCanvases(ctx context.Context) ([]store.Canvas, error)
}

type Service struct {
	store  Store
	hub    *session.Hub
	config canvas.Config
}

// NewService serves canvases from st, hosting live ones in hub. cfg is the
// configuration new canvases are created with.
func NewService(st Store, hub *session.Hub, cfg canvas.Config) *Service {
	return &Service{store: st, hub: hub, config: cfg}
}

// CanvasInfo describes a stored canvas and, once it is live, its state.
type CanvasInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Items     int        `json:"items"`
	LastOrder uint64     `json:"lastOrder"`
	Bounds    *geom.Rect `json:"bounds,omitempty"`
	CanUndo   bool       `json:"canUndo"`
	CanRedo   bool       `json:"canRedo"`
	Revision  uint64     `json:"revision"`
}

// CreateOptions overrides the default configuration of a new canvas. Zero
// fields keep the default.
type CreateOptions struct {
	Name       string
	Kind       canvas.Kind
	Background canvas.Background
	// Sample starts the canvas with a few example items instead of empty.
	Sample bool
}

func (s *Service) Create(ctx context.Context, opts CreateOptions) (*store.Canvas, error) {
	cfg := s.config
	if opts.Kind != "" {
		cfg.Kind = opts.Kind
	}
	if opts.Background != "" {
		cfg.Background = opts.Background
	}

	snap := canvas.New(canvas.WithConfig(cfg)).ToSnapshot()
	if opts.Sample {
		snap = document.NewSampleSnapshot(cfg)
	}
	doc, err := document.Encode(snap)
	if err != nil {
		return nil, fmt.Errorf("encode initial document: %w", err)
	}
	c, err := s.store.CreateCanvas(ctx, opts.Name, doc)
	if err != nil {
		return nil, fmt.Errorf("create canvas: %w", err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]store.Canvas, error) {
	canvases, err := s.store.ListCanvases(ctx)
	if err != nil {
		return nil, err
	}
	if canvases == nil {
		canvases = []store.Canvas{}
	}
	return canvases, nil
}

func (s *Service) Get(ctx context.Context, canvasID string) (*CanvasInfo, error) {
	c, err := s.store.GetCanvas(ctx, canvasID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get canvas: %w", err)
	}
	m, err := s.Model(ctx, canvasID)
	if err != nil {
		return nil, err
	}

	info := &CanvasInfo{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Items:     m.Len(),
		LastOrder: m.LastOrder(),
		CanUndo:   m.CanUndo(),
		CanRedo:   m.CanRedo(),
		Revision:  m.Revision(),
	}
	if b, ok := m.ContentBounds(); ok {
		info.Bounds = &b
	}
	return info, nil
}

// Model returns the live model of a canvas, loading it if needed.
func (s *Service) Model(ctx context.Context, canvasID string) (*canvas.Model, error) {
	r, err := s.hub.Open(ctx, canvasID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownCanvas) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open canvas: %w", err)
	}
	return r.Model(), nil
}

// Save persists a live canvas now.
func (s *Service) Save(ctx context.Context, canvasID string) error {
	if _, err := s.Model(ctx, canvasID); err != nil {
		return err
	}
	return s.hub.Save(ctx, canvasID)
}
