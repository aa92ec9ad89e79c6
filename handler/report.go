package handler

import (
	"strconv"

	"github.com/Shopify/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/karunaapp/backend-api-go/geocode"
	"github.com/karunaapp/backend-api-go/matching"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"github.com/karunaapp/backend-api-go/reports"
	"github.com/karunaapp/backend-api-go/repository"
	"go.uber.org/zap"
)

type ReportsHandler struct {
	repo     *repository.Repository
	geocoder *geocode.Client
	producer sarama.SyncProducer
}

func NewReportsHandler(repo *repository.Repository, geocoder *geocode.Client, producer sarama.SyncProducer) *ReportsHandler {
	return &ReportsHandler{repo: repo, geocoder: geocoder, producer: producer}
}

// createReport godoc
// @Summary            Create Report
// @Tags               Report
// @Produce            json
// @Success            201 {object} reports.LiteReport
// @Param              body body reports.CreateReportRequest true "RequestBody"
// @Router             /reports [POST]
func (h *ReportsHandler) HandleCreate(ctx *fiber.Ctx) error {
	req := reports.CreateReportRequest{}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid location"})
	}
	if req.PeopleInNeed < 1 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "people_in_need must be a positive integer"})
	}

	formattedAddress := ""
	if h.geocoder != nil {
		addr, err := h.geocoder.ReverseGeocode(ctx.Context(), req.Latitude, req.Longitude)
		if err != nil {
			log.Logger().Warn("could not reverse geocode report location", zap.Error(err))
		} else {
			formattedAddress = addr
		}
	}

	id, err := h.repo.CreateReport(ctx.Context(), req, formattedAddress)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	go publishMatchingTrigger(h.producer, matching.Trigger{
		Reason:   matching.TriggerNewReport,
		ReportID: id,
	})

	resp := &reports.LiteReport{
		ID: id,
	}
	return ctx.Status(fiber.StatusCreated).JSON(resp)
}

// getReports godoc
// @Summary            Get Reports
// @Tags               Report
// @Produce            json
// @Success            200 {object} reports.Response
// @Param              only_pending query bool false "Only Pending Match"
// @Router             /reports [GET]
func (h *ReportsHandler) HandleList(ctx *fiber.Ctx) error {
	onlyPendingStr := ctx.Query("only_pending")
	onlyPending, _ := strconv.ParseBool(onlyPendingStr)
	data, err := h.repo.GetReports(ctx.Context(), onlyPending)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	resp := &reports.Response{
		Count:   len(data),
		Results: data,
	}

	return ctx.JSON(resp)
}
