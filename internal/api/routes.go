package api

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"rentou/server/config"
	"rentou/server/internal/auth"
	"rentou/server/internal/metrics"
)

func SetupRoutes(router *gin.Engine, handler *Handler, verifier auth.Verifier, cfg *config.Config, logger *logrus.Logger) {
	router.Use(RequestID(), RequestLogger(logger), metrics.Middleware(), CORS(cfg.Server.AllowedOrigins))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	bearerOnly := RequireAuth(verifier, "", logger)
	owner := RequireAuth(verifier, cfg.Firebase.SessionCookie, logger)

	api := router.Group("/api")
	{
		api.GET("/cep", handler.GetCEP)
		api.GET("/bairro", handler.GetBairro)
		api.GET("/pontos-de-interesse", handler.GetPontosDeInteresse)
		api.POST("/gerar-texto", bearerOnly, handler.GerarTexto)
		api.GET("/status", handler.GetStatus)

		api.GET("/public/imoveis", handler.ListPublicImoveis)
		api.GET("/public/imoveis/:id", handler.GetPublicImovel)
	}

	private := api.Group("", owner)
	{
		private.GET("/imoveis", handler.ListImoveis)
		private.POST("/imoveis", handler.CreateImovel)
		private.POST("/imoveis/coordenadas", handler.AtualizarCoordenadas)
		private.GET("/imoveis/:id", handler.GetImovel)
		private.PUT("/imoveis/:id", handler.UpdateImovel)
		private.DELETE("/imoveis/:id", handler.DeleteImovel)

		private.GET("/condominios", handler.ListCondominios)
		private.POST("/condominios", handler.CreateCondominio)
		private.GET("/condominios/:id", handler.GetCondominio)
		private.PUT("/condominios/:id", handler.UpdateCondominio)
		private.DELETE("/condominios/:id", handler.DeleteCondominio)

		private.GET("/financeiro/resumo", handler.GetResumoFinanceiro)
		private.GET("/perfil", handler.GetPerfil)
		private.PUT("/perfil", handler.UpdatePerfil)
	}

	setupPanelRoutes(router, verifier, cfg, logger)
}

// setupPanelRoutes serves the owner panel and login page behind the session
// guard. Without a static directory the guarded routes answer 404.
func setupPanelRoutes(router *gin.Engine, verifier auth.Verifier, cfg *config.Config, logger *logrus.Logger) {
	guard := SessionGuard(verifier, cfg.Firebase.SessionCookie, logger)
	staticDir := cfg.Server.StaticDir

	notAvailable := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Painel não disponível"})
	}

	panel := router.Group("/painel", guard)
	if staticDir != "" {
		panel.Static("/", filepath.Join(staticDir, "painel"))
	} else {
		panel.GET("/*filepath", notAvailable)
	}

	router.GET("/login", guard, func(c *gin.Context) {
		if staticDir == "" {
			notAvailable(c)
			return
		}
		c.File(filepath.Join(staticDir, "login.html"))
	})
}
