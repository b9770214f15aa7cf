package http

import "github.com/gin-gonic/gin"

// Module is an HTTP-facing part of the API. Name is only used in logs.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module may mount on. Both groups
// sit under /api/v1 and require a valid access token; Admin additionally
// requires the admin role and is prefixed with /admin.
type RouterContext struct {
	Protected *gin.RouterGroup
	Admin     *gin.RouterGroup
}
