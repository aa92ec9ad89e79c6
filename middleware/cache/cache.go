package cache

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/karunaapp/backend-api-go/cache"
	log "github.com/karunaapp/backend-api-go/pkg/logger"
	"go.uber.org/zap"
)

func New() fiber.Handler {
	cacheRepo := cache.NewRedisRepository()
	return func(c *fiber.Ctx) error {
		if c.Path() == "/healthcheck" ||
			c.Path() == "/metrics" ||
			c.Path() == "/monitor" {
			return c.Next()
		}

		reqURI := c.OriginalURL()
		hashURL := uuid.NewSHA1(uuid.NameSpaceOID, []byte(reqURI)).String()
		if c.Method() != http.MethodGet {
			// Since there will be an update in db, better to remove cache entries for this url
			if err := cacheRepo.Delete(hashURL); err != nil {
				log.Logger().Warn("could not invalidate cache entry", zap.String("uri", reqURI), zap.Error(err))
			}
			return c.Next()
		}
		cacheData := cacheRepo.Get(hashURL)
		if len(cacheData) == 0 {
			c.Next()
			if c.Response().StatusCode() == fiber.StatusOK && len(c.Response().Body()) > 0 {
				cacheRepo.SetKey(hashURL, c.Response().Body(), 5*time.Minute)
			}
			return nil
		}

		c.Set("x-cached-response", "true")
		c.Response().SetBodyRaw(cacheData)
		c.Response().Header.SetContentType(fiber.MIMEApplicationJSON)
		return nil
	}
}
