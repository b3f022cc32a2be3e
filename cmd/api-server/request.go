package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/station42/shopfloor/internal/model"
)

func orderIDFromRequest(r *http.Request) (model.ID, error) {
	id := chi.URLParam(r, "orderId")
	if _, err := uuid.Parse(id); err != nil {
		return "", errors.New("invalid order id format")
	}
	return model.ID(id), nil
}
