package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentou/server/internal/apperrors"
	"rentou/server/internal/health"
	"rentou/server/internal/metrics"
	"rentou/server/internal/places"
)

const AuditModeHeader = "x-audit-mode"

// Body returned in audit mode. It tells the operator that the request reached
// the origin, i.e. the edge had no cached answer.
var auditResponse = gin.H{
	"audit":   true,
	"cache":   "MISS",
	"message": "Cache miss: nenhuma chamada ao provedor foi feita",
}

func (h *Handler) GetCEP(c *gin.Context) {
	address, err := h.postal.Resolve(c.Request.Context(), c.Query("cep"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header(health.ProviderHeader, address.Provider)
	c.JSON(http.StatusOK, address)
}

func (h *Handler) GetBairro(c *gin.Context) {
	boundary, err := h.geocoder.Boundary(c.Request.Context(), c.Query("bairro"), c.Query("cidade"), c.Query("estado"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	setCacheHeaders(c, BoundaryCachePolicy)
	c.JSON(http.StatusOK, boundary.GeoJSON())
}

func (h *Handler) GetPontosDeInteresse(c *gin.Context) {
	if c.GetHeader(AuditModeHeader) == "1" {
		metrics.AuditProbes.Inc()
		h.logger.WithFields(logrus.Fields{
			"lat": c.Query("lat"),
			"lon": c.Query("lon"),
		}).Info("Audit probe answered without provider call")

		setNoStoreHeaders(c)
		c.JSON(http.StatusOK, auditResponse)
		return
	}

	lat, lon, err := places.ParseCoordinates(c.Query("lat"), c.Query("lon"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	pois := h.places.Nearby(c.Request.Context(), lat, lon)

	setCacheHeaders(c, PlacesCachePolicy)
	c.JSON(http.StatusOK, pois)
}

type gerarTextoRequest struct {
	Prompt string `json:"prompt"`
}

// GerarTexto runs behind RequireAuth, so the provider is only reached with a
// verified token.
func (h *Handler) GerarTexto(c *gin.Context) {
	var req gerarTextoRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		h.respondError(c, apperrors.Validation("O campo prompt é obrigatório"))
		return
	}

	text, err := h.generator.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		h.respondError(c, apperrors.Internal("Erro ao gerar texto", err))
		return
	}

	if user := currentUser(c); user != nil {
		h.logger.WithFields(logrus.Fields{
			"uid":          user.UID(),
			"prompt_chars": len(req.Prompt),
		}).Info("Generated text")
	}

	setCacheHeaders(c, GeneratedTextCachePolicy)
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// GetStatus always answers 200; failures are reported in the body.
func (h *Handler) GetStatus(c *gin.Context) {
	setNoStoreHeaders(c)
	c.JSON(http.StatusOK, h.status.Report(c.Request.Context()))
}
