package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caldena/caldena/internal/http/middleware"
	"github.com/caldena/caldena/internal/model"
)

// APIError is what an endpoint returns instead of writing to the response
// itself; the controller translates it to a JSON error body.
type APIError struct {
	Code    int
	Message string
}

type HandlerFunc func(ctx *gin.Context) (any, *APIError)
type HandlerFuncWithAuth func(ctx *gin.Context, user *model.User) (any, *APIError)

// Controller wraps a gin group so endpoint modules can register handlers that
// return (result, *APIError) instead of touching the response writer.
type Controller struct {
	Group *gin.RouterGroup
}

func resolve(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		ctx.JSON(http.StatusOK, result)
	}
}

func resolveWithAuth(h HandlerFuncWithAuth) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := middleware.GetCurrentUser(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		result, apiErr := h(ctx, user)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		ctx.JSON(http.StatusOK, result)
	}
}

// PUBLIC_* handlers skip the currentUser requirement (pre-auth routes).

func (c *Controller) PUBLIC_POST(path string, h HandlerFunc) {
	c.Group.POST(path, resolve(h))
}

func (c *Controller) PUBLIC_GET(path string, h HandlerFunc) {
	c.Group.GET(path, resolve(h))
}

func (c *Controller) GET(path string, h HandlerFuncWithAuth) {
	c.Group.GET(path, resolveWithAuth(h))
}

func (c *Controller) POST(path string, h HandlerFuncWithAuth) {
	c.Group.POST(path, resolveWithAuth(h))
}

func (c *Controller) PUT(path string, h HandlerFuncWithAuth) {
	c.Group.PUT(path, resolveWithAuth(h))
}

func (c *Controller) PATCH(path string, h HandlerFuncWithAuth) {
	c.Group.PATCH(path, resolveWithAuth(h))
}

func (c *Controller) DELETE(path string, h HandlerFuncWithAuth) {
	c.Group.DELETE(path, resolveWithAuth(h))
}
