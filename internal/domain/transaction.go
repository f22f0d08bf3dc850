// Package domain contém as estruturas de dados do domínio da aplicação
package domain

import "time"

// Transaction representa uma venda reportada por um vendedor. O registro é
// imutável depois de criado; a exclusão é um caminho administrativo separado
// que apenas dispara o recálculo dos totais.
type Transaction struct {
	ID         string    `json:"id"`
	SellerID   *string   `json:"seller_id,omitempty"`
	SellerName string    `json:"seller_name"`
	Amount     float64   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// Seller representa um vendedor cadastrado. Os metadados (nome, meta, foto e
// som) são editados por fluxos administrativos fora deste serviço; aqui eles
// funcionam apenas como uma consulta por id com fallback por nome para
// transações antigas sem seller_id.
type Seller struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	SoundAssetURL   *string   `json:"sound_asset_url,omitempty"`
	MonthlyGoal     float64   `json:"monthly_goal"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasSound indica se o vendedor possui um som de celebração configurado.
func (s *Seller) HasSound() bool {
	return s != nil && s.SoundAssetURL != nil && *s.SoundAssetURL != ""
}
