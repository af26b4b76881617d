package api

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/catalog"
	"github.com/Checker-Finance/marketeye/internal/pipeline"
	"github.com/Checker-Finance/marketeye/internal/rate"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

// RefreshService triggers a catalog rebuild.
type RefreshService interface {
	Refresh(ctx context.Context) (*pipeline.Result, error)
}

// CatalogHandler serves the in-memory catalog.
type CatalogHandler struct {
	logger   *zap.Logger
	holder   *catalog.Holder
	service  RefreshService
	triggers *rate.Manager
}

// NewCatalogHandler creates a CatalogHandler.
// A nil triggers manager disables throttling of manual runs.
func NewCatalogHandler(logger *zap.Logger, holder *catalog.Holder, service RefreshService, triggers *rate.Manager) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{logger: logger, holder: holder, service: service, triggers: triggers}
}

// RunResponse summarizes a completed refresh.
type RunResponse struct {
	RunID         string                                  `json:"run_id"`
	Products      int                                     `json:"products"`
	Offers        int                                     `json:"offers"`
	FailedRecords int                                     `json:"failed_records"`
	PerSource     map[model.Source]pipeline.SourceSummary `json:"per_source"`
	DurationMS    int64                                   `json:"duration_ms"`
}

// ListProducts handles GET /products with optional brand and source filters.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	f := catalog.Filter{Brand: c.Query("brand")}
	if raw := c.Query("source"); raw != "" {
		src, ok := model.ParseSource(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown source: " + raw})
		}
		f.Source = src
	}

	products := h.holder.Products(f)
	return c.JSON(fiber.Map{
		"count":    len(products),
		"products": products,
	})
}

// GetProduct handles GET /products/:id.
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	p, ok := h.holder.Product(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}
	return c.JSON(p)
}

// GetStats handles GET /stats.
func (h *CatalogHandler) GetStats(c *fiber.Ctx) error {
	snap := h.holder.Current()
	if snap == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "catalog not built yet"})
	}
	return c.JSON(snap.Stats)
}

// GetReport handles GET /report.
func (h *CatalogHandler) GetReport(c *fiber.Ctx) error {
	snap := h.holder.Current()
	if snap == nil {
		return c.Status(fiber.StatusNotFound).SendString("catalog not built yet\n")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(snap.Report)
}

// TriggerRun handles POST /runs. The refresh runs synchronously.
func (h *CatalogHandler) TriggerRun(c *fiber.Ctx) error {
	if h.triggers != nil {
		if ok, retry := h.triggers.Allow(c.IP()); !ok {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many run requests"})
		}
	}

	res, err := h.service.Refresh(c.UserContext())
	if errors.Is(err, catalog.ErrRefreshInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		h.logger.Error("api.run_failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(RunResponse{
		RunID:         res.RunID.String(),
		Products:      len(res.Products),
		Offers:        res.OfferCount(),
		FailedRecords: res.FailedRecords(),
		PerSource:     res.PerSource,
		DurationMS:    res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	})
}
