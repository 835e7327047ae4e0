package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/railzwaylabs/waterline/internal/auth/domain"
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func schedulerActor() authdomain.Actor {
	return authdomain.Actor{Role: authdomain.RoleScheduler}
}
