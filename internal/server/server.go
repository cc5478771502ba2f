// Package server is the companion CRUD service for the agenda.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/contacts"
)

// BasePath is where the contacts resource is mounted
const BasePath = "/api/contatos"

// Handler serves the contacts resource
type Handler struct {
	store  Store
	logger *zap.Logger
	newID  func() contacts.ID
}

// NewHandler creates a handler over store
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		logger: logger.Named("server"),
		newID:  func() contacts.ID { return contacts.ID(uuid.NewString()) },
	}
}

// Router builds the HTTP routes
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.observe)

	api := router.PathPrefix(BasePath).Subrouter()
	api.HandleFunc("", h.list).Methods(http.MethodGet)
	api.HandleFunc("", h.create).Methods(http.MethodPost)
	api.HandleFunc("/buscar", h.search).Methods(http.MethodGet)
	api.HandleFunc("/exportar", h.list).Methods(http.MethodGet)
	api.HandleFunc("/importar", h.importAll).Methods(http.MethodPost)
	api.HandleFunc("/{id}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/{id}", h.update).Methods(http.MethodPut)
	api.HandleFunc("/{id}", h.delete).Methods(http.MethodDelete)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if h.failed(w, "list", err) {
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("nome")
	var (
		list []contacts.Contact
		err  error
	)
	if strings.TrimSpace(term) == "" {
		list, err = h.store.List(r.Context())
	} else {
		list, err = h.store.Search(r.Context(), term)
	}
	if h.failed(w, "search", err) {
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(r.Context(), pathID(r))
	if h.failed(w, "get", err) {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeContact(w, r)
	if !ok {
		return
	}
	c.ID = h.newID()

	created, err := h.store.Create(r.Context(), c)
	if h.failed(w, "create", err) {
		return
	}
	h.logger.Info("contact created", zap.String("id", string(created.ID)))
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeContact(w, r)
	if !ok {
		return
	}

	updated, err := h.store.Update(r.Context(), pathID(r), c)
	if h.failed(w, "update", err) {
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if h.failed(w, "delete", h.store.Delete(r.Context(), id)) {
		return
	}
	h.logger.Info("contact deleted", zap.String("id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importAll(w http.ResponseWriter, r *http.Request) {
	var list []contacts.Contact
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		h.logger.Debug("decoding import failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "expected a JSON array of contacts")
		return
	}

	seen := make(map[contacts.ID]bool, len(list))
	for i := range list {
		if strings.TrimSpace(list[i].Nome) == "" {
			writeError(w, http.StatusBadRequest, "contact "+strconv.Itoa(i)+": nome is required")
			return
		}
		if list[i].ID == "" || seen[list[i].ID] {
			list[i].ID = h.newID()
		}
		seen[list[i].ID] = true
		normalize(&list[i])
	}

	if h.failed(w, "import", h.store.ReplaceAll(r.Context(), list)) {
		return
	}
	ImportedContacts.Add(float64(len(list)))
	h.logger.Info("contacts imported", zap.Int("count", len(list)))
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) decodeContact(w http.ResponseWriter, r *http.Request) (contacts.Contact, bool) {
	var c contacts.Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.logger.Debug("decoding contact failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return c, false
	}
	if strings.TrimSpace(c.Nome) == "" {
		writeError(w, http.StatusBadRequest, "nome is required")
		return c, false
	}
	normalize(&c)
	return c, true
}

func normalize(c *contacts.Contact) {
	if c.Telefones == nil {
		c.Telefones = []string{}
	}
	if c.Emails == nil {
		c.Emails = []string{}
	}
}

// failed writes the response for err and reports whether there was one
func (h *Handler) failed(w http.ResponseWriter, op string, err error) bool {
	if err == nil {
		StoreOperations.WithLabelValues(op, "ok").Inc()
		return false
	}

	if errors.Is(err, contacts.ErrNotFound) {
		StoreOperations.WithLabelValues(op, "not_found").Inc()
		writeError(w, http.StatusNotFound, "contact not found")
		return true
	}

	StoreOperations.WithLabelValues(op, "error").Inc()
	h.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
	return true
}

func pathID(r *http.Request) contacts.ID {
	return contacts.ID(mux.Vars(r)["id"])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// observe logs each request and records its duration
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())

		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed))
	})
}
