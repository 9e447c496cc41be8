package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rentou/server/internal/apperrors"
	"rentou/server/internal/database"
	"rentou/server/internal/models"
	"rentou/server/internal/postal"
)

// GetPerfil returns the caller's profile. A caller without one gets an empty
// profile prefilled from the token.
func (h *Handler) GetPerfil(c *gin.Context) {
	user := currentUser(c)

	perfil, err := h.db.GetPerfil(c.Request.Context(), user.UID())
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusOK, models.Perfil{UID: user.UID(), Nome: user.Name, Email: user.Email})
		return
	}
	if err != nil {
		h.respondError(c, apperrors.Internal("Erro ao carregar perfil", err))
		return
	}
	c.JSON(http.StatusOK, perfil)
}

func (h *Handler) UpdatePerfil(c *gin.Context) {
	var perfil models.Perfil
	if err := c.ShouldBindJSON(&perfil); err != nil {
		h.respondError(c, apperrors.Validation("Dados do perfil inválidos"))
		return
	}
	perfil.UID = currentUser(c).UID()

	if err := validatePerfil(&perfil); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.db.SavePerfil(c.Request.Context(), &perfil); err != nil {
		h.respondError(c, apperrors.Internal("Erro ao salvar perfil", err))
		return
	}
	c.JSON(http.StatusOK, perfil)
}

// validatePerfil keeps only the digits of the document and checks its length
// against the person type: 11 for CPF, 14 for CNPJ.
func validatePerfil(perfil *models.Perfil) error {
	perfil.Nome = strings.TrimSpace(perfil.Nome)

	if perfil.TipoPessoa == "" {
		perfil.TipoPessoa = models.PessoaFisica
	}
	if perfil.TipoPessoa != models.PessoaFisica && perfil.TipoPessoa != models.PessoaJuridica {
		return apperrors.Validation("Tipo de pessoa inválido")
	}

	if perfil.Documento != "" {
		perfil.Documento = postal.Normalize(perfil.Documento)
		expected := 11
		if perfil.TipoPessoa == models.PessoaJuridica {
			expected = 14
		}
		if len(perfil.Documento) != expected {
			return apperrors.Validation("Documento inválido")
		}
	}

	if perfil.CEP != "" {
		if len(postal.Normalize(perfil.CEP)) != 8 {
			return apperrors.Validation("CEP inválido")
		}
		perfil.CEP = postal.Format(perfil.CEP)
	}
	perfil.UF = strings.ToUpper(strings.TrimSpace(perfil.UF))
	return nil
}

func (h *Handler) GetResumoFinanceiro(c *gin.Context) {
	resumo, err := h.db.ResumoFinanceiro(c.Request.Context(), currentUser(c).UID())
	if err != nil {
		h.respondError(c, apperrors.Internal("Erro ao calcular resumo financeiro", err))
		return
	}
	c.JSON(http.StatusOK, resumo)
}
