package controllers

import (
	"errors"
	"net/http"

	"questlog/internal/services"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrGetGames     = errors.New("failed to get games")
	ErrSearch       = errors.New("failed to search games")
	ErrCreate       = errors.New("failed to create")
	ErrUpdate       = errors.New("failed to update")
	ErrDelete       = errors.New("failed to delete")
	ErrEncoding     = errors.New("failed to encode")
)

// serviceErrorStatus maps service sentinels to HTTP codes; anything
// unrecognized is a 500.
func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrDuplicateTag):
		return http.StatusConflict
	case errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrEmptyTag),
		errors.Is(err, services.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrExternalLookup):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
