package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/karunaapp/backend-api-go/matching"
	"github.com/karunaapp/backend-api-go/missions"
)

// MatchRunner is what this handler needs from the matching engine.
type MatchRunner interface {
	Run(ctx context.Context, trigger matching.Trigger) (*matching.PassResult, error)
}

type RunMatchingRequest struct {
	Trigger    string `json:"trigger"`
	ReportID   int64  `json:"report_id"`
	DonationID int64  `json:"donation_id"`
}

type RunMatchingResponse struct {
	Success         bool               `json:"success"`
	MatchesFound    int                `json:"matches_found"`
	MissionsCreated int                `json:"missions_created"`
	CreatedMissions []missions.Mission `json:"created_missions"`
}

// runMatching godoc
// @Summary            Run a matching pass over pending reports and available donations
// @Tags               Matching
// @Accept             json
// @Produce            json
// @Success            200 {object} RunMatchingResponse
// @Param              body body RunMatchingRequest false "RequestBody"
// @Router             /matching/run [POST]
func RunMatchingHandler(engine MatchRunner) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		req := RunMatchingRequest{}
		if len(ctx.Body()) > 0 {
			if err := ctx.BodyParser(&req); err != nil {
				return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
		}
		if req.Trigger == "" {
			req.Trigger = matching.TriggerManual
		}

		result, err := engine.Run(ctx.Context(), matching.Trigger{
			Reason:     req.Trigger,
			ReportID:   req.ReportID,
			DonationID: req.DonationID,
		})
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return ctx.JSON(&RunMatchingResponse{
			Success:         true,
			MatchesFound:    result.MatchesFound,
			MissionsCreated: result.MissionsCreated,
			CreatedMissions: result.CreatedMissions,
		})
	}
}
