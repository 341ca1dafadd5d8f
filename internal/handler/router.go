package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/worldsun-app/coopeartion-project/internal/middleware"
)

type RouterDeps struct {
	Chat      *ChatHandler
	Catalog   *CatalogHandler
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	limited := api.Group("")
	limited.Use(middleware.RateLimit(deps.RateLimit))
	limited.POST("/conversations/:"+middleware.ConversationParam+"/commands", deps.Chat.Command)
	limited.POST("/knowledge/ask", deps.Chat.Knowledge)

	api.GET("/catalog", deps.Catalog.Get)
	api.POST("/catalog/rebuild", deps.Catalog.Rebuild)
}
