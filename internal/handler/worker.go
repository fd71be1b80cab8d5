package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AlchemyApps/mindScript-sub006/internal/queue"
	"github.com/AlchemyApps/mindScript-sub006/internal/worker"
	"github.com/AlchemyApps/mindScript-sub006/pkg/response"
)

// ConfiguredChecker reports whether a speech client has credentials.
type ConfiguredChecker interface {
	IsConfigured() bool
}

type WorkerHandler struct {
	orchestrator *worker.Orchestrator
	store        *queue.Store
	synthesizers map[string]ConfiguredChecker
}

func NewWorkerHandler(orc *worker.Orchestrator, store *queue.Store, synthesizers map[string]ConfiguredChecker) *WorkerHandler {
	return &WorkerHandler{
		orchestrator: orc,
		store:        store,
		synthesizers: synthesizers,
	}
}

// Process handles POST /internal/worker/process: the scheduler-facing
// entrypoint that claims and renders a batch of jobs. Callers get the batch
// report back so a cron log shows what each tick did.
func (h *WorkerHandler) Process(c *fiber.Ctx) error {
	report := h.orchestrator.ProcessBatch(c.Context())
	return response.OK(c, report)
}

// Health handles GET /health.
func (h *WorkerHandler) Health(c *fiber.Ctx) error {
	redisOK := h.store.Ping(c.Context()) == nil

	providers := make(map[string]bool, len(h.synthesizers))
	for name, s := range h.synthesizers {
		providers[name] = s.IsConfigured()
	}

	pending, _ := h.store.PendingCount(c.Context())

	status := "healthy"
	code := fiber.StatusOK
	if !redisOK {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"redis":        redisOK,
		"providers":    providers,
		"pending_jobs": pending,
	})
}
