package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"questlog/internal/middleware"
	"questlog/internal/models"

	"github.com/go-chi/chi/v5"
)

type TagServicer interface {
	AddTag(userID, userGameID, raw string) (*models.GameTag, error)
	RemoveTag(userID, userGameID, raw string) error
	ListTags(userID, userGameID string) ([]string, error)
	ListAllUserTags(userID string) ([]string, error)
	FindUserGamesByTags(userID string, tags []string) ([]models.UserGame, error)
}

type TagController struct {
	service TagServicer
	log     *slog.Logger
}

func NewTagController(s TagServicer, log *slog.Logger) *TagController {
	return &TagController{
		service: s,
		log:     log,
	}
}

type TagRequest struct {
	Tag string `json:"tag"`
}

func (c *TagController) List(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.tags.List"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	tags, err := c.service.ListTags(userID, id)
	if err != nil {
		c.log.Error(
			"failed to list tags",
			slog.String("operation", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		http.Error(w, "failed to list tags", serviceErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(tags); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *TagController) Add(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.tags.Add"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	var request TagRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	tag, err := c.service.AddTag(userID, id, request.Tag)
	if err != nil {
		c.log.Error(
			"failed to add tag",
			slog.String("operation", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		http.Error(w, "failed to add tag", serviceErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(TagRequest{Tag: tag.Tag}); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *TagController) Remove(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.tags.Remove"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	var request TagRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	if err := c.service.RemoveTag(userID, id, request.Tag); err != nil {
		c.log.Error(
			"failed to remove tag",
			slog.String("operation", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		http.Error(w, "failed to remove tag", serviceErrorStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *TagController) ListAll(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.tags.ListAll"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	tags, err := c.service.ListAllUserTags(userID)
	if err != nil {
		c.log.Error(
			"failed to list user tags",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		http.Error(w, "failed to list user tags", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(tags); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}
