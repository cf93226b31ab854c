// Package canvas is the infinite canvas data engine: it owns the item store,
// the spatial index and the undo history, and serializes every access to
// them through a single reader/writer lock.
//
// Queries (QueryRect, HitTest, ContentBounds, ToSnapshot) take the shared
// lock and may run concurrently with each other, typically from a render
// goroutine. Mutations (AddItem, Erase, DeleteItems, Undo, Redo, Clear,
// SetLoadedState) take the exclusive lock. Erase is split in two phases so
// the exclusive hold only covers the items that actually change; see Erase.
//
// Every destructive change goes through a history action, so everything a
// user does can be undone up to the configured history depth.
package canvas

import (
	"log/slog"
	"sync"

	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/history"
	"github.com/inkslate/inkslate/backend-go/internal/item"
	"github.com/inkslate/inkslate/backend-go/internal/quadtree"
)

// Kind selects between an unbounded canvas and fixed-width pages.
type Kind string

const (
	KindInfinite Kind = "infinite"
	KindPages    Kind = "pages"
)

// Background is the page decoration drawn behind content.
type Background string

const (
	BackgroundBlank  Background = "blank"
	BackgroundLined  Background = "lined"
	BackgroundGrid   Background = "grid"
	BackgroundDotted Background = "dotted"
)

// Config is the canvas configuration persisted alongside its content.
type Config struct {
	Kind       Kind
	PageWidth  float64
	PageHeight float64
	Background Background
	// Viewport is the last view transform, kept so a reopened note shows
	// the same region.
	Viewport geom.Matrix2D
}

// DefaultConfig is an infinite, blank canvas with an identity viewport.
func DefaultConfig() Config {
	return Config{
		Kind:       KindInfinite,
		PageWidth:  1404,
		PageHeight: 1872,
		Background: BackgroundBlank,
		Viewport:   geom.Identity(),
	}
}

// Model is the canvas façade. The zero value is not usable; call New.
type Model struct {
	mu sync.RWMutex

	items   map[uint64]item.Item
	index   *quadtree.Tree
	history *history.Manager
	// lastOrder is the high-water mark; the next commit gets lastOrder+1.
	lastOrder uint64

	content      geom.Rect
	hasContent   bool
	contentStale bool
	// applying counts nested executions so content bounds are refreshed
	// once per top-level action.
	applying int

	// revision counts every change a save would need to capture.
	revision uint64

	cfg    Config
	events *Broadcaster
	logger *slog.Logger
}

type settings struct {
	cfg          Config
	historyDepth int
	world        geom.Rect
	treeOpts     []quadtree.Option
	logger       *slog.Logger
}

type Option func(*settings)

// WithConfig sets the initial canvas configuration.
func WithConfig(cfg Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithHistoryDepth bounds the undo and redo stacks.
func WithHistoryDepth(depth int) Option {
	return func(s *settings) { s.historyDepth = depth }
}

// WithWorldExtent sets the half-size of the spatial index root square.
func WithWorldExtent(extent float64) Option {
	return func(s *settings) {
		if extent > 0 {
			s.world = quadtree.World(extent)
		}
	}
}

// WithIndexLimits tunes quadtree node capacity and depth.
func WithIndexLimits(maxItems, maxDepth int) Option {
	return func(s *settings) {
		s.treeOpts = append(s.treeOpts, quadtree.WithMaxItems(maxItems), quadtree.WithMaxDepth(maxDepth))
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// New creates an empty canvas.
func New(opts ...Option) *Model {
	s := settings{
		cfg:          DefaultConfig(),
		historyDepth: history.DefaultDepth,
		world:        quadtree.World(quadtree.DefaultWorldExtent),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Model{
		items:   make(map[uint64]item.Item),
		index:   quadtree.New(s.world, s.treeOpts...),
		history: history.NewManager(s.historyDepth),
		cfg:     s.cfg,
		events:  NewBroadcaster(),
		logger:  s.logger,
	}
}

// Subscribe registers for change notifications. See Broadcaster.
func (m *Model) Subscribe(buffer int) *Subscription {
	return m.events.Subscribe(buffer)
}

// Config returns the current configuration.
func (m *Model) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// SetViewport records the current view transform.
func (m *Model) SetViewport(v geom.Matrix2D) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Viewport = v
	m.revision++
}

// SetBackground changes the background style.
func (m *Model) SetBackground(b Background) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Background = b
	m.revision++
}

// Revision returns a counter that advances on every content or
// configuration change. Persistence compares it to skip unchanged canvases.
func (m *Model) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// nextOrder hands out the next identity. Caller must hold the write lock.
func (m *Model) nextOrder() uint64 {
	m.lastOrder++
	return m.lastOrder
}
