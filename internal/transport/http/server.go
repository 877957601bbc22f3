package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hearthchat/hearth-server/internal/config"
	"github.com/hearthchat/hearth-server/internal/core"
)

// NewServer builds the HTTP listener hosting the health endpoint and the
// WebSocket gateway. The gateway speaks the same logical frames as the
// TCP transport, bridged onto the same directory and broadcaster.
func NewServer(cfg config.Config, dir *core.Directory, router *core.Router, bcast *core.Broadcaster, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", healthHandler)
	engine.GET("/ws", gin.WrapH(NewWSHandler(dir, router, bcast, logger)))

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
