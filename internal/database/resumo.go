package database

import (
	"context"
	"math"

	"rentou/server/internal/models"
)

func (d *Database) ResumoFinanceiro(ctx context.Context, ownerID string) (models.ResumoFinanceiro, error) {
	imoveis, err := d.ListImoveis(ctx, models.ImovelFilter{OwnerID: ownerID})
	if err != nil {
		return models.ResumoFinanceiro{}, err
	}
	return CalcularResumo(imoveis), nil
}

// CalcularResumo summarizes an owner's portfolio. Income counts rent on
// leased listings; expenses are condominium fees plus monthly IPTU on every
// listing still held; occupancy is leased over leasable (rental listings that
// are not inactive).
func CalcularResumo(imoveis []models.Imovel) models.ResumoFinanceiro {
	var resumo models.ResumoFinanceiro
	var locaveis, ocupados int

	for _, imovel := range imoveis {
		resumo.TotalImoveis++

		switch imovel.Status {
		case models.StatusAlugado:
			resumo.Alugados++
			resumo.ReceitaMensal += imovel.Aluguel
		case models.StatusDisponivel:
			resumo.Disponiveis++
		case models.StatusVendido:
			resumo.Vendidos++
			continue
		}

		if imovel.Finalidade == models.FinalidadeAluguel && imovel.Status != models.StatusInativo {
			locaveis++
			if imovel.Status == models.StatusAlugado {
				ocupados++
			}
		}

		resumo.DespesasMensais += imovel.ValorCondominio + imovel.IPTU/12
		resumo.ValorCarteira += imovel.Preco
	}

	if locaveis > 0 {
		resumo.TaxaOcupacao = round(float64(ocupados) / float64(locaveis) * 100)
	}
	resumo.ReceitaMensal = round(resumo.ReceitaMensal)
	resumo.DespesasMensais = round(resumo.DespesasMensais)
	resumo.ResultadoMensal = round(resumo.ReceitaMensal - resumo.DespesasMensais)
	resumo.ValorCarteira = round(resumo.ValorCarteira)
	return resumo
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
