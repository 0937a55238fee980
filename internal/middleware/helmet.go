package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
)

// Helmet sets the standard security headers. Cross-origin embedding stays
// allowed so the documentation pages can load their CDN assets.
func Helmet() fiber.Handler {
	return helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
		ReferrerPolicy:            "no-referrer",
	})
}
