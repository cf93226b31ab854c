// Package api exposes canvases over REST. Every mutation goes through the
// live model hosted by the session hub, so websocket clients watching the
// same canvas see REST changes too.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inkslate/inkslate/backend-go/internal/auth"
	"github.com/inkslate/inkslate/backend-go/internal/canvas"
	"github.com/inkslate/inkslate/backend-go/internal/document"
	"github.com/inkslate/inkslate/backend-go/internal/geom"
	"github.com/inkslate/inkslate/backend-go/internal/item"
	"github.com/inkslate/inkslate/backend-go/internal/session"
)

const defaultHitTolerance = 4

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the canvas endpoints on r, usually the /api subrouter.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/canvases", h.List).Methods("GET")
	r.HandleFunc("/canvases", h.Create).Methods("POST")
	r.HandleFunc("/canvases/{canvasId}", h.Get).Methods("GET")
	r.HandleFunc("/canvases/{canvasId}/document", h.Document).Methods("GET")
	r.HandleFunc("/canvases/{canvasId}/save", h.Save).Methods("POST")
	r.HandleFunc("/canvases/{canvasId}/items", h.QueryItems).Methods("GET")
	r.HandleFunc("/canvases/{canvasId}/items", h.AddItem).Methods("POST")
	r.HandleFunc("/canvases/{canvasId}/items", h.DeleteItems).Methods("DELETE")
	r.HandleFunc("/canvases/{canvasId}/hit", h.HitTest).Methods("GET")
	r.HandleFunc("/canvases/{canvasId}/erase", h.Erase).Methods("POST")
	r.HandleFunc("/canvases/{canvasId}/undo", h.Undo).Methods("POST")
	r.HandleFunc("/canvases/{canvasId}/redo", h.Redo).Methods("POST")
	r.HandleFunc("/canvases/{canvasId}/clear", h.Clear).Methods("POST")
}

type createRequest struct {
	Name       string            `json:"name"`
	Kind       canvas.Kind       `json:"kind"`
	Background canvas.Background `json:"background"`
	Sample     bool              `json:"sample"`
}

type deleteRequest struct {
	Orders []uint64 `json:"orders"`
}

// changeResponse reports the region a mutation touched.
type changeResponse struct {
	Changed bool       `json:"changed"`
	Bounds  *geom.Rect `json:"bounds,omitempty"`
}

func changed(b geom.Rect, ok bool) changeResponse {
	if !ok {
		return changeResponse{}
	}
	return changeResponse{Changed: true, Bounds: &b}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	switch req.Kind {
	case "", canvas.KindInfinite, canvas.KindPages:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be infinite or pages"})
		return
	}
	switch req.Background {
	case "", canvas.BackgroundBlank, canvas.BackgroundLined, canvas.BackgroundGrid, canvas.BackgroundDotted:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown background"})
		return
	}

	c, err := h.service.Create(r.Context(), CreateOptions{
		Name:       req.Name,
		Kind:       req.Kind,
		Background: req.Background,
		Sample:     req.Sample,
	})
	if err != nil {
		slog.Error("create canvas failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	slog.Info("canvas created", "canvas", c.ID, "subject", auth.SubjectFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	canvases, err := h.service.List(r.Context())
	if err != nil {
		slog.Error("list canvases failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, canvases)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Get(r.Context(), mux.Vars(r)["canvasId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Document returns the whole canvas in its stored document format.
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	data, err := document.Encode(m.ToSnapshot())
	if err != nil {
		slog.Error("encode document failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Save(r.Context(), mux.Vars(r)["canvasId"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// QueryItems returns the items intersecting the rect given by the x, y, w
// and h query parameters, in paint order.
func (h *Handler) QueryItems(w http.ResponseWriter, r *http.Request) {
	v, err := floatParams(r, "x", "y", "w", "h")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	nodes, err := encodeItems(m.QueryRect(geom.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}))
	if err != nil {
		slog.Error("encode items failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// AddItem commits one uncommitted item and returns it with its order.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var node document.ItemNode
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	it, err := session.NewItem(node)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	committed, ok := m.AddItem(it)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "item rejected"})
		return
	}
	out, err := document.EncodeItem(committed)
	if err != nil {
		slog.Error("encode item failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

// DeleteItems removes the items with the given orders as one undoable step.
// Unknown orders are ignored.
func (h *Handler) DeleteItems(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	var items []item.Item
	for _, order := range req.Orders {
		if it, ok := m.Get(order); ok {
			items = append(items, it)
		}
	}

	writeJSON(w, http.StatusOK, changed(m.DeleteItems(items)))
}

func (h *Handler) HitTest(w http.ResponseWriter, r *http.Request) {
	v, err := floatParams(r, "x", "y")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	tol := float64(defaultHitTolerance)
	if s := r.URL.Query().Get("tol"); s != "" {
		tol, err = strconv.ParseFloat(s, 64)
		if err != nil || tol < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tol"})
			return
		}
	}
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	it, ok := m.HitTest(v[0], v[1], tol)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no item at point"})
		return
	}
	node, err := document.EncodeItem(it)
	if err != nil {
		slog.Error("encode item failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, node)
}

func (h *Handler) Erase(w http.ResponseWriter, r *http.Request) {
	var req session.ErasePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	switch req.Kind {
	case canvas.EraserStroke, canvas.EraserLasso, canvas.EraserStandard:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be stroke, lasso or standard"})
		return
	}
	if len(req.Points) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points are required"})
		return
	}
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, changed(m.Erase(req.Stroke(), req.Kind)))
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, changed(m.Undo()))
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, changed(m.Redo()))
}

// Clear empties the canvas and its history. It cannot be undone.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	m, ok := h.model(w, r)
	if !ok {
		return
	}

	m.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) model(w http.ResponseWriter, r *http.Request) (*canvas.Model, bool) {
	m, err := h.service.Model(r.Context(), mux.Vars(r)["canvasId"])
	if err != nil {
		handleServiceError(w, err)
		return nil, false
	}
	return m, true
}

func floatParams(r *http.Request, names ...string) ([]float64, error) {
	q := r.URL.Query()
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s", name)
		}
		out[i] = v
	}
	return out, nil
}

func encodeItems(items []item.Item) ([]document.ItemNode, error) {
	nodes := make([]document.ItemNode, 0, len(items))
	for _, it := range items {
		node, err := document.EncodeItem(it)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "canvas not found"})
	case errors.Is(err, session.ErrStopped):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "shutting down"})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
