package handler

import (
	"net/http"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/monitor"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// MonitorHandler exposes the engine's read side: the current snapshot
// view, manual refresh and the last cycle report.
type MonitorHandler struct {
	engine *monitor.Engine
	logger *logger.Logger
}

func NewMonitorHandler(engine *monitor.Engine, logger *logger.Logger) *MonitorHandler {
	return &MonitorHandler{
		engine: engine,
		logger: logger.Component("handler/monitor"),
	}
}

type SnapshotResponse struct {
	PRs []domain.Snapshot `json:"prs"`
}

func (h *MonitorHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshots := h.engine.GetSnapshot()
	writeJSON(w, http.StatusOK, SnapshotResponse{PRs: snapshots}, h.logger)
}

// TriggerRefresh starts a poll cycle or joins the one in flight, and
// responds with that cycle's report.
func (h *MonitorHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.TriggerRefresh(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, report, h.logger)
}

func (h *MonitorHandler) LastCycle(w http.ResponseWriter, r *http.Request) {
	report, ok := h.engine.LastCycle()
	if !ok {
		http.Error(w, "no cycle completed yet", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, report, h.logger)
}
