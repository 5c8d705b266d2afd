// Package server is a reference backend for the address book REST contract.
// It serves the endpoints the client consumes, plus a lookup by id, backed
// by Store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/smileynet/addrbook/internal/api"
	"github.com/smileynet/addrbook/internal/contact"
)

// maxRequestBody bounds a single contact payload.
const maxRequestBody int64 = 64 << 10

// Handler serves the contact collection.
type Handler struct {
	store *Store
	log   *zap.Logger
}

// NewHandler creates a Handler over store. A nil logger discards output.
func NewHandler(store *Store, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{store: store, log: log}
}

// Routes returns the router with middleware and all endpoints mounted.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.health)
	r.Route(api.CollectionPath, func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.save)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, h.store.List())
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.Get(contact.ID(chi.URLParam(r, "id")))
	if errors.Is(err, ErrNotFound) {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var c contact.Contact
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&c); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid contact payload: "+err.Error())
		return
	}

	saved, err := h.store.Save(c)
	if err != nil {
		h.log.Error("saving contact", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "could not save contact")
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := contact.ID(chi.URLParam(r, "id"))

	removed, err := h.store.Delete(id)
	if err != nil {
		h.log.Error("deleting contact", zap.String("id", id.String()), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "could not delete contact")
		return
	}
	if !removed {
		h.log.Debug("delete of unknown contact", zap.String("id", id.String()))
	}
	w.WriteHeader(http.StatusNoContent)
}

// logRequests logs one line per request after it completes.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// Serve runs the handler on addr until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("address book server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.log.Info("shutting down address book server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
