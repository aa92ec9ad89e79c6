package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/karunaapp/backend-api-go/cache"
)

func InvalidateCache() fiber.Handler {
	cacheRepo := cache.NewRedisRepository()

	return func(ctx *fiber.Ctx) error {
		err := cacheRepo.Prune()

		if err != nil {
			ctx.Status(fiber.StatusInternalServerError)
			return ctx.SendString(err.Error())
		}

		return ctx.SendStatus(fiber.StatusOK)
	}
}
