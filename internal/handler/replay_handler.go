package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-replay-go/internal/models"
	"github.com/jengzang/location-replay-go/internal/registry"
	"github.com/jengzang/location-replay-go/internal/service"
	"github.com/jengzang/location-replay-go/internal/simulation"
	"github.com/jengzang/location-replay-go/pkg/response"
)

// ReplayHandler handles HTTP requests for the running simulation and its
// persisted samples
type ReplayHandler struct {
	sim           *simulation.Simulation
	replayService *service.ReplayService
}

// NewReplayHandler creates a new replay handler
func NewReplayHandler(sim *simulation.Simulation, replayService *service.ReplayService) *ReplayHandler {
	return &ReplayHandler{
		sim:           sim,
		replayService: replayService,
	}
}

// GetStatus handles GET /api/v1/simulation
func (h *ReplayHandler) GetStatus(c *gin.Context) {
	status := gin.H{
		"runId":     h.sim.RunID(),
		"ticks":     h.sim.TickCount(),
		"providers": h.sim.ProviderCount(),
	}
	if center, ok := h.sim.MapCenter(); ok {
		status["mapCenter"] = center
	}
	response.Success(c, status)
}

// GetProviders handles GET /api/v1/providers
func (h *ReplayHandler) GetProviders(c *gin.Context) {
	providers := h.sim.Providers()
	response.Success(c, gin.H{
		"data":  providers,
		"count": len(providers),
	})
}

// GetProvider handles GET /api/v1/providers/:index
func (h *ReplayHandler) GetProvider(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	snapshot, err := h.sim.Provider(index)
	if errors.Is(err, registry.ErrUnknownProvider) {
		response.NotFound(c, "Provider not found")
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, snapshot)
}

// GetAgents handles GET /api/v1/agents
func (h *ReplayHandler) GetAgents(c *gin.Context) {
	agents := h.sim.Agents()
	response.Success(c, gin.H{
		"data":  agents,
		"count": len(agents),
	})
}

// GetSamples handles GET /api/v1/samples. Without runId the current run
// is queried; geohash narrows the result to one cell prefix.
func (h *ReplayHandler) GetSamples(c *gin.Context) {
	var filter models.ReplaySampleFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	if filter.RunID == "" {
		filter.RunID = h.sim.RunID()
	}

	result, err := h.replayService.GetSamples(filter)
	if errors.Is(err, service.ErrInvalidFilter) {
		response.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// GetSummary handles GET /api/v1/providers/:index/summary
func (h *ReplayHandler) GetSummary(c *gin.Context) {
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	if index >= h.sim.ProviderCount() {
		response.NotFound(c, "Provider not found")
		return
	}

	runID := c.DefaultQuery("runId", h.sim.RunID())
	summary, err := h.replayService.Summary(runID, index)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, summary)
}

// Tick handles POST /api/v1/simulation/tick
func (h *ReplayHandler) Tick(c *gin.Context) {
	tick, err := h.sim.Tick(c.Request.Context())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"tick":     tick,
		"operator": c.GetString("operator"),
	})
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.BadRequest(c, "Invalid provider index")
		return 0, false
	}
	return index, true
}
