package auth

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const ApiKeyHeaderName = "X-Api-Key"

// New gates every write endpoint (report/donation submission, matching
// runs) and pprof behind the service api key. Reads stay open.
func New() fiber.Handler {
	apiKey := os.Getenv("ApiKey")

	return func(ctx *fiber.Ctx) error {
		apiKeyNeeded := false

		if strings.Contains(ctx.Path(), "pprof") || ctx.Method() == fiber.MethodPost {
			apiKeyNeeded = true
		}

		if apiKeyNeeded && ctx.Get(ApiKeyHeaderName) != apiKey {
			return ctx.SendStatus(fiber.StatusUnauthorized)
		}

		return ctx.Next()
	}
}
