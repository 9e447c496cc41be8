package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentou/server/internal/apperrors"
	"rentou/server/internal/database"
	"rentou/server/internal/geometry"
	"rentou/server/internal/models"
	"rentou/server/internal/postal"
)

// ListPublicImoveis returns published listings, optionally filtered by
// cidade, bairro, tipo and finalidade.
func (h *Handler) ListPublicImoveis(c *gin.Context) {
	var filter models.ImovelFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.respondError(c, apperrors.Validation("Filtros inválidos"))
		return
	}
	filter.Publicados = true
	filter.Status = ""

	imoveis, err := h.db.ListImoveis(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, apperrors.Internal("Erro ao listar imóveis", err))
		return
	}
	c.JSON(http.StatusOK, imoveis)
}

func (h *Handler) GetPublicImovel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	imovel, err := h.db.GetImovel(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !imovel.Publicado {
		h.respondError(c, database.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, imovel)
}

func (h *Handler) ListImoveis(c *gin.Context) {
	var filter models.ImovelFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.respondError(c, apperrors.Validation("Filtros inválidos"))
		return
	}
	filter.OwnerID = currentUser(c).UID()

	imoveis, err := h.db.ListImoveis(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, apperrors.Internal("Erro ao listar imóveis", err))
		return
	}
	c.JSON(http.StatusOK, imoveis)
}

func (h *Handler) GetImovel(c *gin.Context) {
	imovel, err := h.ownedImovel(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imovel)
}

func (h *Handler) CreateImovel(c *gin.Context) {
	var imovel models.Imovel
	if err := c.ShouldBindJSON(&imovel); err != nil {
		h.respondError(c, apperrors.Validation("Dados do imóvel inválidos"))
		return
	}
	imovel.ID = 0
	imovel.OwnerID = currentUser(c).UID()

	if err := h.saveImovel(c, &imovel); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, imovel)
}

func (h *Handler) UpdateImovel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var imovel models.Imovel
	if err := c.ShouldBindJSON(&imovel); err != nil {
		h.respondError(c, apperrors.Validation("Dados do imóvel inválidos"))
		return
	}
	imovel.ID = id
	imovel.OwnerID = currentUser(c).UID()

	if err := h.saveImovel(c, &imovel); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imovel)
}

func (h *Handler) DeleteImovel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.db.DeleteImovel(c.Request.Context(), currentUser(c).UID(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AtualizarCoordenadas geocodes the caller's listings that still lack coordinates.
func (h *Handler) AtualizarCoordenadas(c *gin.Context) {
	report, err := database.UpdateMissingCoordinates(c.Request.Context(), h.db, h.geocoder, currentUser(c).UID(), h.logger)
	if err != nil {
		h.respondError(c, apperrors.Internal("Erro ao atualizar coordenadas", err))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) ownedImovel(c *gin.Context) (*models.Imovel, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}

	imovel, err := h.db.GetImovel(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	// Other owners' listings are reported as missing.
	if imovel.OwnerID != currentUser(c).UID() {
		return nil, database.ErrNotFound
	}
	return imovel, nil
}

func (h *Handler) saveImovel(c *gin.Context, imovel *models.Imovel) error {
	if err := validateImovel(imovel); err != nil {
		return err
	}

	if imovel.CondominioID != nil {
		condominio, err := h.db.GetCondominio(c.Request.Context(), *imovel.CondominioID)
		if err != nil || condominio.OwnerID != imovel.OwnerID {
			return apperrors.Validation("Condomínio inválido")
		}
	}

	if !imovel.HasCoordinates() && imovel.Logradouro != "" && imovel.Cidade != "" {
		h.geocodeImovel(c, imovel)
	}

	return h.db.SaveImovel(c.Request.Context(), imovel)
}

// geocodeImovel fills in coordinates from the address. Failures are logged and
// the listing is saved without them.
func (h *Handler) geocodeImovel(c *gin.Context, imovel *models.Imovel) {
	lat, lon, err := h.geocoder.GeocodeAddress(c.Request.Context(), imovel.Endereco(), imovel.CEP, imovel.Cidade)
	imovel.GeocodingAttempted = true
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"id":      imovel.ID,
			"address": imovel.Endereco(),
		}).Warn("Failed to geocode listing on save")
		return
	}
	imovel.Latitude = &lat
	imovel.Longitude = &lon
}

func validateImovel(imovel *models.Imovel) error {
	imovel.Titulo = strings.TrimSpace(imovel.Titulo)
	if imovel.Titulo == "" {
		return apperrors.Validation("O título é obrigatório")
	}

	if imovel.Status == "" {
		imovel.Status = models.StatusDisponivel
	}
	if imovel.Tipo != "" && !oneOf(imovel.Tipo, models.TiposImovel) {
		return apperrors.Validation("Tipo de imóvel inválido")
	}
	if imovel.Finalidade != "" && !oneOf(imovel.Finalidade, models.Finalidades) {
		return apperrors.Validation("Finalidade inválida")
	}
	if !oneOf(imovel.Status, models.StatusList) {
		return apperrors.Validation("Status inválido")
	}

	for _, v := range []float64{imovel.Preco, imovel.Aluguel, imovel.ValorCondominio, imovel.IPTU, imovel.Area} {
		if v < 0 {
			return apperrors.Validation("Valores não podem ser negativos")
		}
	}

	if (imovel.Latitude == nil) != (imovel.Longitude == nil) {
		return apperrors.Validation("Informe latitude e longitude juntas")
	}
	if imovel.HasCoordinates() && !geometry.ValidCoordinate(*imovel.Latitude, *imovel.Longitude) {
		return apperrors.Validation("Coordenadas inválidas")
	}

	if imovel.CEP != "" {
		if len(postal.Normalize(imovel.CEP)) != 8 {
			return apperrors.Validation("CEP inválido")
		}
		imovel.CEP = postal.Format(imovel.CEP)
	}
	imovel.UF = strings.ToUpper(strings.TrimSpace(imovel.UF))
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
