package handler

import (
	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/middleware"
)

// caller returns the verified identity the auth middleware attached to
// the request. Authorization is a parameter of every engine call, never
// ambient state.
func caller(c *gin.Context) (string, domain.Role) {
	return c.GetString(middleware.ContextUserID), domain.Role(c.GetString(middleware.ContextRole))
}
