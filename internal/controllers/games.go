package controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"questlog/internal/models"
)

type GameServicer interface {
	SearchGames(ctx context.Context, query string) ([]models.Game, error)
	AddGameFromCatalog(ctx context.Context, externalID string) (*models.Game, error)
}

type GameController struct {
	service GameServicer
	log     *slog.Logger
}

func NewGameController(s GameServicer, log *slog.Logger) *GameController {
	return &GameController{
		service: s,
		log:     log,
	}
}

type AddGameRequest struct {
	ExternalID string `json:"external_id"`
}

func (c *GameController) Search(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.games.Search"

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing q query parameter", http.StatusBadRequest)
		return
	}

	games, err := c.service.SearchGames(r.Context(), query)
	if err != nil {
		c.log.Error(
			ErrSearch.Error(),
			slog.String("operation", op),
			slog.String("query", query),
			slog.String("error", err.Error()))
		http.Error(w, ErrSearch.Error(), http.StatusInternalServerError)
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

func (c *GameController) AddGame(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.games.AddGame"

	var request AddGameRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return
	}

	if request.ExternalID == "" {
		http.Error(w, "external_id is required", http.StatusBadRequest)
		return
	}

	game, err := c.service.AddGameFromCatalog(r.Context(), request.ExternalID)
	if err != nil {
		c.log.Error(
			ErrCreate.Error(),
			slog.String("operation", op),
			slog.String("external_id", request.ExternalID),
			slog.String("error", err.Error()))
		http.Error(w, ErrCreate.Error(), serviceErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(game); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
		http.Error(w, ErrEncoding.Error(), http.StatusInternalServerError)
		return
	}
}
