package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rentou/server/internal/apperrors"
	"rentou/server/internal/database"
	"rentou/server/internal/models"
	"rentou/server/internal/postal"
)

func (h *Handler) ListCondominios(c *gin.Context) {
	condominios, err := h.db.ListCondominios(c.Request.Context(), currentUser(c).UID())
	if err != nil {
		h.respondError(c, apperrors.Internal("Erro ao listar condomínios", err))
		return
	}
	c.JSON(http.StatusOK, condominios)
}

func (h *Handler) GetCondominio(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	condominio, err := h.db.GetCondominio(c.Request.Context(), id)
	if err == nil && condominio.OwnerID != currentUser(c).UID() {
		err = database.ErrNotFound
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, condominio)
}

func (h *Handler) CreateCondominio(c *gin.Context) {
	var condominio models.Condominio
	if err := c.ShouldBindJSON(&condominio); err != nil {
		h.respondError(c, apperrors.Validation("Dados do condomínio inválidos"))
		return
	}
	condominio.ID = 0
	condominio.OwnerID = currentUser(c).UID()

	if err := h.saveCondominio(c, &condominio); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, condominio)
}

func (h *Handler) UpdateCondominio(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var condominio models.Condominio
	if err := c.ShouldBindJSON(&condominio); err != nil {
		h.respondError(c, apperrors.Validation("Dados do condomínio inválidos"))
		return
	}
	condominio.ID = id
	condominio.OwnerID = currentUser(c).UID()

	if err := h.saveCondominio(c, &condominio); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, condominio)
}

func (h *Handler) DeleteCondominio(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.db.DeleteCondominio(c.Request.Context(), currentUser(c).UID(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) saveCondominio(c *gin.Context, condominio *models.Condominio) error {
	condominio.Nome = strings.TrimSpace(condominio.Nome)
	if condominio.Nome == "" {
		return apperrors.Validation("O nome do condomínio é obrigatório")
	}
	if condominio.Unidades < 0 || condominio.Taxa < 0 {
		return apperrors.Validation("Valores não podem ser negativos")
	}
	if condominio.CEP != "" {
		if len(postal.Normalize(condominio.CEP)) != 8 {
			return apperrors.Validation("CEP inválido")
		}
		condominio.CEP = postal.Format(condominio.CEP)
	}
	condominio.UF = strings.ToUpper(strings.TrimSpace(condominio.UF))

	return h.db.SaveCondominio(c.Request.Context(), condominio)
}
