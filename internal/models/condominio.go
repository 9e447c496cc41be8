package models

import "time"

type Condominio struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	OwnerID    string    `json:"ownerId" gorm:"index;not null"`
	Nome       string    `json:"nome" binding:"required"`
	CEP        string    `json:"cep"`
	Logradouro string    `json:"logradouro"`
	Bairro     string    `json:"bairro"`
	Cidade     string    `json:"cidade"`
	UF         string    `json:"uf"`
	Unidades   int       `json:"unidades"`
	Sindico    string    `json:"sindico"`
	Taxa       float64   `json:"taxa"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Condominio) TableName() string { return "condominios" }
