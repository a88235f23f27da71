package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/internal/brokerops"
	"github.com/Checker-Finance/mt5-adapter/internal/sync"
	"github.com/Checker-Finance/mt5-adapter/internal/tracker"
)

// Handler serves the adapter's ops endpoints: health, on-demand sync, and
// delivery ledger lookups.
type Handler struct {
	logger  *zap.Logger
	job     *sync.Job
	tracker tracker.Tracker
	health  *brokerops.HealthChecker
}

func NewHandler(logger *zap.Logger, job *sync.Job, tr tracker.Tracker, health *brokerops.HealthChecker) *Handler {
	return &Handler{
		logger:  logger,
		job:     job,
		tracker: tr,
		health:  health,
	}
}

func (h *Handler) getHealth(c *fiber.Ctx) error {
	report := h.health.Report(c.Context())
	status := fiber.StatusOK
	if !report.Healthy() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

// postSync triggers a sync pass immediately. The run executes inline so
// the caller gets the summary back.
func (h *Handler) postSync(c *fiber.Ctx) error {
	sum, err := h.job.RunOnce(c.Context())
	if err != nil {
		h.logger.Error("on-demand sync failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"summary": sum,
			"error":   err.Error(),
		})
	}
	return c.JSON(sum)
}

func (h *Handler) getLastSync(c *fiber.Ctx) error {
	sum := h.job.Last()
	if sum == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no sync run yet"})
	}
	return c.JSON(sum)
}

func (h *Handler) getDelivery(c *fiber.Ctx) error {
	ticket, err := strconv.ParseInt(c.Params("ticket"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid ticket"})
	}

	rec, err := h.tracker.Lookup(c.Context(), ticket)
	if err != nil {
		h.logger.Error("delivery lookup failed", zap.Int64("ticket", ticket), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "ledger unavailable"})
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "ticket not delivered"})
	}
	return c.JSON(rec)
}

func (h *Handler) getLiveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}
