package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"questlog/internal/middleware"
	"questlog/internal/models"
	"questlog/internal/services"

	"github.com/go-chi/chi/v5"
)

type QueueServicer interface {
	CreateQueue(userID, name, description string) (*models.GameQueue, error)
	CreateQueueWithFilters(userID, name, description string, filterTags []string) (*models.GameQueue, error)
	FindNewMatches(userID, queueID string) ([]models.UserGame, error)
	ReorderQueue(userID, queueID string, orders []services.QueueAssignment) error
	UpdateQueue(userID, queueID string, patch services.QueuePatch) (*models.GameQueue, error)
	DeleteQueue(userID, queueID string) error
	GetQueue(userID, queueID string) (*services.QueueWithStats, error)
	GetUserQueues(userID string) ([]services.QueueWithStats, error)
}

type QueueController struct {
	service QueueServicer
	log     *slog.Logger
}

func NewQueueController(s QueueServicer, log *slog.Logger) *QueueController {
	return &QueueController{
		service: s,
		log:     log,
	}
}

type CreateQueueRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	FilterTags  []string `json:"filter_tags"`
}

type UpdateQueueRequest struct {
	Name        *string                    `json:"name"`
	Description *string                    `json:"description"`
	GameOrders  []services.QueueAssignment `json:"game_orders"`
}

func (c *QueueController) List(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.queues.List"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	queues, err := c.service.GetUserQueues(userID)
	if err != nil {
		c.log.Error(
			"failed to get queues",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		http.Error(w, "failed to get queues", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(queues); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *QueueController) Create(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.queues.Create"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	var request CreateQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	if request.Name == "" {
		http.Error(w, "queue name is required", http.StatusBadRequest)
		return
	}

	var queue *models.GameQueue
	var err error
	if len(request.FilterTags) > 0 {
		queue, err = c.service.CreateQueueWithFilters(userID, request.Name, request.Description, request.FilterTags)
	} else {
		queue, err = c.service.CreateQueue(userID, request.Name, request.Description)
	}
	if err != nil {
		c.log.Error(
			ErrCreate.Error(),
			slog.String("operation", op),
			slog.String("name", request.Name),
			slog.String("error", err.Error()))
		http.Error(w, ErrCreate.Error(), serviceErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(queue); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *QueueController) Update(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.queues.Update"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	var request UpdateQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	if request.Name != nil || request.Description != nil {
		_, err := c.service.UpdateQueue(userID, id, services.QueuePatch{
			Name:        request.Name,
			Description: request.Description,
		})
		if err != nil {
			c.log.Error(
				ErrUpdate.Error(),
				slog.String("operation", op),
				slog.String("id", id),
				slog.String("error", err.Error()))
			http.Error(w, ErrUpdate.Error(), serviceErrorStatus(err))
			return
		}
	}

	if len(request.GameOrders) > 0 {
		if err := c.service.ReorderQueue(userID, id, request.GameOrders); err != nil {
			c.log.Error(
				ErrUpdate.Error(),
				slog.String("operation", op),
				slog.String("id", id),
				slog.String("error", err.Error()))
			http.Error(w, ErrUpdate.Error(), serviceErrorStatus(err))
			return
		}
	}

	queue, err := c.service.GetQueue(userID, id)
	if err != nil {
		c.log.Error(
			ErrUpdate.Error(),
			slog.String("operation", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		http.Error(w, ErrUpdate.Error(), serviceErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(queue); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *QueueController) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.queues.Delete"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	if err := c.service.DeleteQueue(userID, id); err != nil {
		c.log.Error(
			ErrDelete.Error(),
			slog.String("operation", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		http.Error(w, ErrDelete.Error(), serviceErrorStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *QueueController) Matches(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.queues.Matches"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	matches, err := c.service.FindNewMatches(userID, id)
	if err != nil {
		c.log.Error(
			"failed to find matches",
			slog.String("operation", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		http.Error(w, "failed to find matches", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(matches); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}
