package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"questlog/internal/middleware"
	"questlog/internal/models"
	"questlog/internal/services"

	"github.com/go-chi/chi/v5"
)

type CollectionServicer interface {
	AddGameToCollection(userID, gameID string, opts services.AddToCollectionOptions) (*models.UserGame, error)
	GetUserGame(userID, userGameID string) (*models.UserGame, error)
	ListUserGames(userID string, status *models.GameStatus) ([]models.UserGame, error)
	UpdateUserGame(userID, userGameID string, patch services.UserGamePatch) (*models.UserGame, error)
	RemoveUserGame(userID, userGameID string) error
}

type CollectionController struct {
	service CollectionServicer
	log     *slog.Logger
}

func NewCollectionController(s CollectionServicer, log *slog.Logger) *CollectionController {
	return &CollectionController{
		service: s,
		log:     log,
	}
}

type AddToCollectionRequest struct {
	GameID  string             `json:"game_id"`
	QueueID *string            `json:"queue_id"`
	Status  *models.GameStatus `json:"status"`
}

// TransitionRejection is the 400 body for an invalid status change.
type TransitionRejection struct {
	Error              string              `json:"error"`
	CurrentStatus      models.GameStatus   `json:"current_status"`
	AllowedTransitions []models.GameStatus `json:"allowed_transitions"`
}

func (c *CollectionController) Add(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.collection.Add"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	var request AddToCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	if request.GameID == "" {
		http.Error(w, "game_id is required", http.StatusBadRequest)
		return
	}

	userGame, err := c.service.AddGameToCollection(userID, request.GameID, services.AddToCollectionOptions{
		QueueID: request.QueueID,
		Status:  request.Status,
	})
	if err != nil {
		c.log.Error(
			ErrCreate.Error(),
			slog.String("operation", op),
			slog.String("game_id", request.GameID),
			slog.String("error", err.Error()))
		http.Error(w, ErrCreate.Error(), serviceErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(userGame); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *CollectionController) List(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.collection.List"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	var status *models.GameStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.GameStatus(raw)
		if !s.IsValid() {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}
		status = &s
	}

	games, err := c.service.ListUserGames(userID, status)
	if err != nil {
		c.log.Error(
			ErrGetGames.Error(),
			slog.String("operation", op),
			slog.String("error", err.Error()))
		http.Error(w, ErrGetGames.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(games); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *CollectionController) Get(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.collection.Get"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	userGame, err := c.service.GetUserGame(userID, id)
	if err != nil {
		c.log.Error(
			ErrGetGames.Error(),
			slog.String("operation", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		http.Error(w, ErrGetGames.Error(), serviceErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(userGame); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *CollectionController) Update(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.collection.Update"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	var patch services.UserGamePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	userGame, err := c.service.UpdateUserGame(userID, id, patch)
	if err != nil {
		var invalid *services.InvalidTransitionError
		if errors.As(err, &invalid) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(TransitionRejection{
				Error:              invalid.Error(),
				CurrentStatus:      invalid.From,
				AllowedTransitions: invalid.Allowed,
			})
			return
		}
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
	if err := json.NewEncoder(w).Encode(userGame); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}

func (c *CollectionController) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.collection.Delete"

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")

	if err := c.service.RemoveUserGame(userID, id); err != nil {
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
