// Package api wires the HTTP surface: the assistant query endpoint, book
// CRUD, insights, and recommendations. Authorization lives in the auth
// middleware; handlers only translate between HTTP and the services.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelfwise/shelfwise/internal/assistant"
	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/books"
	"github.com/shelfwise/shelfwise/internal/httputil"
	"github.com/shelfwise/shelfwise/internal/insights"
	"github.com/shelfwise/shelfwise/internal/recommend"
)

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	assistant *assistant.Service
	books     *books.Service
	insights  *insights.Service
	recommend *recommend.Service
}

func NewHandler(a *assistant.Service, b *books.Service, i *insights.Service, r *recommend.Service) *Handler {
	return &Handler{assistant: a, books: b, insights: i, recommend: r}
}

// Routes mounts every authenticated endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/assistant/query", h.AssistantQuery)

	r.Route("/v1/books", func(r chi.Router) {
		r.Get("/", h.ListBooks)
		r.Post("/", h.CreateBook)
		r.Get("/search", h.SearchBooks)
		r.Get("/count", h.CountBooks)
		r.Get("/{id}", h.GetBook)
		r.Put("/{id}", h.UpdateBook)
		r.Delete("/{id}", h.DeleteBook)
	})
	r.Get("/v1/admin/books", h.ListAllBooks)

	r.Get("/v1/insights/library", h.LibraryInsights)
	r.Get("/v1/insights/me", h.ReadingHabits)

	r.Route("/v1/recommendations", func(r chi.Router) {
		r.Get("/", h.Recommendations)
		r.Post("/save", h.SaveRecommendation)
		r.Post("/dismiss", h.DismissRecommendation)
	})
}

type assistantQueryRequest struct {
	Question string `json:"question"`
}

// AssistantQuery handles POST /v1/assistant/query
func (h *Handler) AssistantQuery(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	var req assistantQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if req.Question == "" {
		httputil.WriteBadRequestError(w, reqID, "question is required")
		return
	}

	resp, err := h.assistant.Query(r.Context(), req.Question, info.UserID, info.IsAdmin())
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, resp)
}

// ListBooks handles GET /v1/books
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	list, err := h.books.List(r.Context(), info.UserID)
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, list)
}

// ListAllBooks handles GET /v1/admin/books
func (h *Handler) ListAllBooks(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	list, err := h.books.ListAll(r.Context(), books.Caller(info.UserID, info.IsAdmin()))
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, list)
}

// CreateBook handles POST /v1/books
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	var in books.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	book, err := h.books.Create(r.Context(), info.UserID, &in)
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusCreated, book)
}

// GetBook handles GET /v1/books/{id}
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	book, err := h.books.Get(r.Context(), books.Caller(info.UserID, info.IsAdmin()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, book)
}

// UpdateBook handles PUT /v1/books/{id}
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	var in books.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	book, err := h.books.Update(r.Context(), books.Caller(info.UserID, info.IsAdmin()), chi.URLParam(r, "id"), &in)
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, book)
}

// DeleteBook handles DELETE /v1/books/{id}
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	if err := h.books.Delete(r.Context(), books.Caller(info.UserID, info.IsAdmin()), chi.URLParam(r, "id")); err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchBooks handles GET /v1/books/search?q=term
func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	list, err := h.books.Search(r.Context(), info.UserID, r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, list)
}

// CountBooks handles GET /v1/books/count
func (h *Handler) CountBooks(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	count, err := h.books.Count(r.Context(), info.UserID)
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, map[string]int{"count": count})
}

// LibraryInsights handles GET /v1/insights/library. Admins see the whole
// library; members see their own slice.
func (h *Handler) LibraryInsights(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	scoped := info.UserID
	if info.IsAdmin() {
		scoped = ""
	}
	payload, err := h.insights.Library(r.Context(), scoped)
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, payload)
}

// ReadingHabits handles GET /v1/insights/me
func (h *Handler) ReadingHabits(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	habits, err := h.insights.Habits(r.Context(), info.UserID)
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, habits)
}

// Recommendations handles GET /v1/recommendations?count=n
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	count := 0
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.WriteBadRequestError(w, reqID, "count must be a non-negative integer")
			return
		}
		count = n
	}

	resp := h.recommend.Recommendations(r.Context(), info.UserID, count)
	httputil.WriteJSON(w, reqID, http.StatusOK, resp)
}

// SaveRecommendation handles POST /v1/recommendations/save
func (h *Handler) SaveRecommendation(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	var rec recommend.Recommendation
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	resp, err := h.recommend.Save(r.Context(), info.UserID, &rec)
	if err != nil {
		httputil.WriteAppError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, resp)
}

type dismissRequest struct {
	Title string `json:"title"`
}

// DismissRecommendation handles POST /v1/recommendations/dismiss
func (h *Handler) DismissRecommendation(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	info, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	var req dismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if req.Title == "" {
		httputil.WriteBadRequestError(w, reqID, "title is required")
		return
	}

	resp := h.recommend.Dismiss(r.Context(), info.UserID, req.Title)
	httputil.WriteJSON(w, reqID, http.StatusOK, resp)
}
