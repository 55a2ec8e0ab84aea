package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"bullshark/src/model"

	logger "github.com/sirupsen/logrus"
)

const (
	defaultLimit = 20
	maxLimit     = 500
)

type tradeFinder interface {
	FindRecent(ctx context.Context, productID string, limit int) ([]model.Trade, error)
}

type stateLister interface {
	List(ctx context.Context) ([]model.PositionState, error)
}

type exceptionFinder interface {
	FindRecent(ctx context.Context, limit int) ([]model.Exception, error)
}

// RecentTradesHandler lists the latest trades of one product, newest first.
// Query: product (required), limit (default 20, max 500).
func RecentTradesHandler(repo tradeFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product := r.URL.Query().Get("product")
		if product == "" {
			http.Error(w, "missing product", http.StatusBadRequest)
			return
		}

		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		trades, err := repo.FindRecent(r.Context(), product, limit)
		if err != nil {
			logger.WithError(err).WithField("product_id", product).Error("failed to load trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if trades == nil {
			trades = []model.Trade{}
		}
		writeJSON(w, trades)
	}
}

// StatusHandler returns the position state of every tracked product.
func StatusHandler(repo stateLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states, err := repo.List(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list position states")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if states == nil {
			states = []model.PositionState{}
		}
		writeJSON(w, states)
	}
}

// RecentExceptionsHandler lists the latest captured failures.
func RecentExceptionsHandler(repo exceptionFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		excs, err := repo.FindRecent(r.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("failed to load exceptions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, excs)
	}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := defaultLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return 0, false
		}
		limit = min(parsed, maxLimit)
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
