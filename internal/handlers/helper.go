package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Path aliases for the implicit instance.
const (
	latestInstanceAlias = "latest"
	activeInstanceAlias = "active"
)

func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// instanceParam resolves an instance path segment, mapping alias to the
// empty id the service uses for the implicit instance.
func instanceParam(c *gin.Context, alias string) (string, bool) {
	id := ParseStringIDParam(c, "instanceID")
	if id == "" {
		return "", false
	}
	if id == alias {
		return "", true
	}
	return id, true
}
