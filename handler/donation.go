package handler

import (
	"strconv"

	"github.com/Shopify/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/karunaapp/backend-api-go/donations"
	"github.com/karunaapp/backend-api-go/geocode"
	"github.com/karunaapp/backend-api-go/matching"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"github.com/karunaapp/backend-api-go/repository"
	"go.uber.org/zap"
)

type DonationsHandler struct {
	repo     *repository.Repository
	geocoder *geocode.Client
	producer sarama.SyncProducer
}

func NewDonationsHandler(repo *repository.Repository, geocoder *geocode.Client, producer sarama.SyncProducer) *DonationsHandler {
	return &DonationsHandler{repo: repo, geocoder: geocoder, producer: producer}
}

// createDonation godoc
// @Summary            Create Donation
// @Tags               Donation
// @Produce            json
// @Success            201 {object} donations.LiteDonation
// @Param              body body donations.CreateDonationRequest true "RequestBody"
// @Router             /donations [POST]
func (h *DonationsHandler) HandleCreate(ctx *fiber.Ctx) error {
	req := donations.CreateDonationRequest{}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid pickup location"})
	}
	if req.ResourceType == "" || req.Quantity == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "resource_type and quantity are required"})
	}

	formattedAddress := ""
	if h.geocoder != nil {
		addr, err := h.geocoder.ReverseGeocode(ctx.Context(), req.Latitude, req.Longitude)
		if err != nil {
			log.Logger().Warn("could not reverse geocode pickup location", zap.Error(err))
		} else {
			formattedAddress = addr
		}
	}

	id, err := h.repo.CreateDonation(ctx.Context(), req, formattedAddress)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	go publishMatchingTrigger(h.producer, matching.Trigger{
		Reason:     matching.TriggerNewDonation,
		DonationID: id,
	})

	resp := &donations.LiteDonation{
		ID: id,
	}
	return ctx.Status(fiber.StatusCreated).JSON(resp)
}

// getDonations godoc
// @Summary            Get Donations
// @Tags               Donation
// @Produce            json
// @Success            200 {object} donations.Response
// @Param              only_available query bool false "Only Available"
// @Router             /donations [GET]
func (h *DonationsHandler) HandleList(ctx *fiber.Ctx) error {
	onlyAvailableStr := ctx.Query("only_available")
	onlyAvailable, _ := strconv.ParseBool(onlyAvailableStr)
	data, err := h.repo.GetDonations(ctx.Context(), onlyAvailable)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	results := make([]donations.Donation, 0, len(data))
	for _, donation := range data {
		results = append(results, donation.Masked())
	}

	resp := &donations.Response{
		Count:   len(results),
		Results: results,
	}

	return ctx.JSON(resp)
}
