package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karunaapp/backend-api-go/missions"
	"github.com/karunaapp/backend-api-go/repository"
)

// getMissions godoc
// @Summary            Get Missions
// @Tags               Mission
// @Produce            json
// @Success            200 {object} missions.Response
// @Router             /missions [GET]
func GetMissionsHandler(repo *repository.Repository) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		data, err := repo.GetMissions(ctx.Context())
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		resp := &missions.Response{
			Count:   len(data),
			Results: data,
		}

		return ctx.JSON(resp)
	}
}
