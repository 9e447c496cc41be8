package models

import "time"

const (
	PessoaFisica   = "fisica"
	PessoaJuridica = "juridica"
)

// Perfil holds an owner's contact and legal qualification data, keyed by the
// identity provider uid.
type Perfil struct {
	UID         string    `json:"uid" gorm:"primaryKey"`
	Nome        string    `json:"nome"`
	Email       string    `json:"email"`
	Telefone    string    `json:"telefone"`
	Documento   string    `json:"documento"`
	TipoPessoa  string    `json:"tipoPessoa"`
	EstadoCivil string    `json:"estadoCivil"`
	Profissao   string    `json:"profissao"`
	Creci       string    `json:"creci"`
	CEP         string    `json:"cep"`
	Logradouro  string    `json:"logradouro"`
	Numero      string    `json:"numero"`
	Complemento string    `json:"complemento"`
	Bairro      string    `json:"bairro"`
	Cidade      string    `json:"cidade"`
	UF          string    `json:"uf"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Perfil) TableName() string { return "perfis" }

type ResumoFinanceiro struct {
	TotalImoveis    int     `json:"totalImoveis"`
	Alugados        int     `json:"alugados"`
	Disponiveis     int     `json:"disponiveis"`
	Vendidos        int     `json:"vendidos"`
	TaxaOcupacao    float64 `json:"taxaOcupacao"`
	ReceitaMensal   float64 `json:"receitaMensal"`
	DespesasMensais float64 `json:"despesasMensais"`
	ResultadoMensal float64 `json:"resultadoMensal"`
	ValorCarteira   float64 `json:"valorCarteira"`
}

// CoordinatesReport summarizes a geocoding pass over an owner's listings.
type CoordinatesReport struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}
