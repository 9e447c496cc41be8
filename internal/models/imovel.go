package models

import "time"

const (
	TipoApartamento = "apartamento"
	TipoCasa        = "casa"
	TipoComercial   = "comercial"
	TipoTerreno     = "terreno"

	FinalidadeAluguel = "aluguel"
	FinalidadeVenda   = "venda"

	StatusDisponivel = "disponivel"
	StatusAlugado    = "alugado"
	StatusVendido    = "vendido"
	StatusInativo    = "inativo"
)

var (
	TiposImovel = []string{TipoApartamento, TipoCasa, TipoComercial, TipoTerreno}
	Finalidades = []string{FinalidadeAluguel, FinalidadeVenda}
	StatusList  = []string{StatusDisponivel, StatusAlugado, StatusVendido, StatusInativo}
)

// Imovel is a listing owned by a single account.
type Imovel struct {
	ID              int64    `json:"id" gorm:"primaryKey"`
	OwnerID         string   `json:"ownerId" gorm:"index;not null"`
	Titulo          string   `json:"titulo" binding:"required"`
	Descricao       string   `json:"descricao"`
	Tipo            string   `json:"tipo" gorm:"index"`
	Finalidade      string   `json:"finalidade" gorm:"index"`
	Status          string   `json:"status" gorm:"index"`
	Preco           float64  `json:"preco"`
	Aluguel         float64  `json:"aluguel"`
	ValorCondominio float64  `json:"valorCondominio"`
	IPTU            float64  `json:"iptu"`
	Quartos         int      `json:"quartos"`
	Banheiros       int      `json:"banheiros"`
	Vagas           int      `json:"vagas"`
	Area            float64  `json:"area"`
	CEP             string   `json:"cep"`
	Logradouro      string   `json:"logradouro"`
	Numero          string   `json:"numero"`
	Bairro          string   `json:"bairro" gorm:"index"`
	Cidade          string   `json:"cidade" gorm:"index"`
	UF              string   `json:"uf"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	CondominioID    *int64   `json:"condominioId"`
	Publicado       bool     `json:"publicado" gorm:"index"`

	// Set once an address lookup has been tried, so failed addresses are not retried on every pass.
	GeocodingAttempted bool `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *Imovel) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// Endereco is the street line used for geocoding.
func (i *Imovel) Endereco() string {
	if i.Numero == "" {
		return i.Logradouro
	}
	return i.Logradouro + ", " + i.Numero
}

type ImovelFilter struct {
	OwnerID    string `form:"-"`
	Cidade     string `form:"cidade"`
	Bairro     string `form:"bairro"`
	Tipo       string `form:"tipo"`
	Finalidade string `form:"finalidade"`
	Status     string `form:"status"`
	Publicados bool   `form:"-"`
}

func (Imovel) TableName() string { return "imoveis" }
