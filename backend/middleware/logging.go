package middleware

import (
	"log"
	"time"

	"usuarios/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware logs one line per request: ip, method, path, status,
// latency and the handler error if any.
func LoggingMiddleware(logger *log.Logger, colors bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Передаем управление следующему обработчику
		err := c.Next()

		status := c.Response().StatusCode()
		method := c.Method()

		var statusColor, methodColor, reset string
		if colors {
			statusColor, methodColor, reset = utils.StatusColor(status), utils.MethodColor(method), "\033[0m"
		}

		line := []interface{}{
			c.IP(),
			methodColor, method, reset,
			c.Path(),
			statusColor, status, reset,
			time.Since(start),
		}
		if err != nil {
			logger.Printf("%s %s%s%s %s %s%d%s %v error=%v", append(line, err)...)
		} else {
			logger.Printf("%s %s%s%s %s %s%d%s %v", line...)
		}

		return err
	}
}
