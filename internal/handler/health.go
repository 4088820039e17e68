package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health returns a liveness/readiness check.  MySQL must answer; Redis is
// reported but optional since the engine degrades without it.
func Health(db *sql.DB, rdb *redis.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := echo.Map{"mysql": "ok", "redis": "disabled"}
		code := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			status["mysql"] = "down"
			code = http.StatusServiceUnavailable
		}
		if rdb != nil {
			status["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				status["redis"] = "down"
			}
		}
		return c.JSON(code, status)
	}
}
