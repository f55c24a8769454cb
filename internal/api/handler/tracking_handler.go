package handler

import (
	"encoding/json"
	"net/http"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
	"github.com/JavaZeroo/gitee-monitor/internal/service"
)

// TrackingHandler exposes the add/remove commands for explicit tracked
// pull requests and followed authors.
type TrackingHandler struct {
	tracking *service.TrackingService
	logger   *logger.Logger
}

func NewTrackingHandler(tracking *service.TrackingService, logger *logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
		logger:   logger.Component("handler/tracking"),
	}
}

type AddTrackedResponse struct {
	Key domain.TrackedKey `json:"key"`
}

func (h *TrackingHandler) AddTracked(w http.ResponseWriter, r *http.Request) {
	var cmd service.TrackedCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	key, err := h.tracking.AddTracked(r.Context(), cmd)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, AddTrackedResponse{Key: key}, h.logger)
}

func (h *TrackingHandler) RemoveTracked(w http.ResponseWriter, r *http.Request) {
	var cmd service.TrackedCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.tracking.RemoveTracked(r.Context(), cmd); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type FollowAuthorResponse struct {
	Author domain.FollowedAuthor `json:"author"`
}

func (h *TrackingHandler) FollowAuthor(w http.ResponseWriter, r *http.Request) {
	var cmd service.AuthorCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	author, err := h.tracking.FollowAuthor(r.Context(), cmd)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, FollowAuthorResponse{Author: author}, h.logger)
}

func (h *TrackingHandler) UnfollowAuthor(w http.ResponseWriter, r *http.Request) {
	var cmd service.AuthorCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.logger.Warn("invalid request body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.tracking.UnfollowAuthor(r.Context(), cmd); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
