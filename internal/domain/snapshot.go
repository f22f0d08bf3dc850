package domain

import "time"

// RankedSeller é uma posição do ranking de vendas, agrupada pelo nome de
// exibição resolvido. Vendedores não cadastrados entram no ranking com o nome
// literal reportado, sem foto e sem meta.
type RankedSeller struct {
	Position        int     `json:"position"`
	SellerID        *string `json:"seller_id,omitempty"`
	Name            string  `json:"name"`
	Total           float64 `json:"total"`
	MonthlyGoal     float64 `json:"monthly_goal,omitempty"`
	GoalPercentage  float64 `json:"goal_percentage,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

// AggregateSnapshot é a visão derivada dos totais e rankings em um instante.
// Nunca é persistido: cada notificação de mudança recalcula tudo a partir do
// conjunto completo de transações do mês.
type AggregateSnapshot struct {
	TotalToday         float64        `json:"total_today"`
	TotalMonth         float64        `json:"total_month"`
	RankedSellersToday []RankedSeller `json:"ranked_sellers_today"`
	RankedSellersMonth []RankedSeller `json:"ranked_sellers_month"`
	GeneratedAt        time.Time      `json:"generated_at"`
}
