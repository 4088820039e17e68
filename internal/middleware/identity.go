package middleware

import "github.com/labstack/echo/v4"

// HolderKey is the context key of the authenticated holder id.
const HolderKey = "holder_id"

// HolderID returns the holder stored by JWTAuth, or "" for anonymous
// requests.
func HolderID(c echo.Context) string {
	if s, ok := c.Get(HolderKey).(string); ok {
		return s
	}
	return ""
}
