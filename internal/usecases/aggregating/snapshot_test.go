package aggregating

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

func stringPtr(s string) *string {
	return &s
}

func seller(id, name string, goal float64) *domain.Seller {
	return &domain.Seller{
		ID:          id,
		Name:        name,
		MonthlyGoal: goal,
	}
}

func transaction(id string, sellerID *string, sellerName string, amount float64, ts time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:         id,
		SellerID:   sellerID,
		SellerName: sellerName,
		Amount:     amount,
		Timestamp:  ts,
	}
}

func TestResolveSeller(t *testing.T) {
	sellers := []*domain.Seller{
		seller("SEL001", "Anna", 50000),
		seller("SEL002", "Johan", 45000),
		seller("SEL003", "anna", 30000), // homônimo com caixa diferente
	}

	tests := []struct {
		name               string
		transaction        *domain.Transaction
		expectedSellerID   string
		expectedResolution Resolution
	}{
		{
			name:               "Resolve por id exato mesmo com nome divergente",
			transaction:        transaction("TX1", stringPtr("SEL002"), "Anna", 100, time.Now()),
			expectedSellerID:   "SEL002",
			expectedResolution: ResolvedByID,
		},
		{
			name:               "Resolve por nome sem diferenciar maiúsculas",
			transaction:        transaction("TX2", nil, "  JOHAN ", 100, time.Now()),
			expectedSellerID:   "SEL002",
			expectedResolution: ResolvedByName,
		},
		{
			name:               "Nome duplicado resolve para o primeiro da lista",
			transaction:        transaction("TX3", nil, "ANNA", 100, time.Now()),
			expectedSellerID:   "SEL001",
			expectedResolution: ResolvedByName,
		},
		{
			name:               "Id desconhecido cai no fallback por nome",
			transaction:        transaction("TX4", stringPtr("SEL999"), "Johan", 100, time.Now()),
			expectedSellerID:   "SEL002",
			expectedResolution: ResolvedByName,
		},
		{
			name:               "Sem id e sem nome cadastrado fica não resolvido",
			transaction:        transaction("TX5", nil, "Visitante", 100, time.Now()),
			expectedResolution: Unresolved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, resolution := ResolveSeller(tt.transaction, sellers)

			assert.Equal(t, tt.expectedResolution, resolution)
			if tt.expectedResolution == Unresolved {
				assert.Nil(t, resolved)
				return
			}
			assert.Equal(t, tt.expectedSellerID, resolved.ID)
		})
	}
}

func TestBuildSnapshot(t *testing.T) {
	// Quarta-feira, 15 de janeiro às 12h.
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	startOfDay := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	startOfMonth := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	sellers := []*domain.Seller{
		seller("SEL001", "Anna", 10000),
		seller("SEL002", "Johan", 0),
	}

	t.Run("Fronteiras de dia e mês são inclusivas", func(t *testing.T) {
		transactions := []*domain.Transaction{
			transaction("TX1", stringPtr("SEL001"), "Anna", 100, startOfMonth),
			transaction("TX2", stringPtr("SEL001"), "Anna", 50, startOfDay),
			transaction("TX3", stringPtr("SEL002"), "Johan", 30, startOfDay.Add(-time.Nanosecond)),
		}

		snapshot := BuildSnapshot(now, sellers, transactions, 10)

		// TX3 é de ontem: conta no mês, não no dia.
		assert.Equal(t, 50.0, snapshot.TotalToday)
		assert.Equal(t, 180.0, snapshot.TotalMonth)
		assert.Len(t, snapshot.RankedSellersToday, 1)
		assert.Len(t, snapshot.RankedSellersMonth, 2)
	})

	t.Run("Ranking ordena por total com empate na ordem de chegada", func(t *testing.T) {
		transactions := []*domain.Transaction{
			transaction("TX1", stringPtr("SEL002"), "Johan", 200, now.Add(-time.Hour)),
			transaction("TX2", stringPtr("SEL001"), "Anna", 200, now.Add(-30*time.Minute)),
			transaction("TX3", nil, "Visitante", 500, now.Add(-10*time.Minute)),
		}

		snapshot := BuildSnapshot(now, sellers, transactions, 10)

		assert.Equal(t, "Visitante", snapshot.RankedSellersMonth[0].Name)
		assert.Equal(t, 1, snapshot.RankedSellersMonth[0].Position)
		assert.Nil(t, snapshot.RankedSellersMonth[0].SellerID)

		// Empate em 200: Johan apareceu primeiro no conjunto.
		assert.Equal(t, "Johan", snapshot.RankedSellersMonth[1].Name)
		assert.Equal(t, "Anna", snapshot.RankedSellersMonth[2].Name)
	})

	t.Run("Percentual da meta calculado apenas para quem tem meta", func(t *testing.T) {
		transactions := []*domain.Transaction{
			transaction("TX1", stringPtr("SEL001"), "Anna", 2500, now.Add(-time.Hour)),
			transaction("TX2", stringPtr("SEL002"), "Johan", 1000, now.Add(-time.Hour)),
		}

		snapshot := BuildSnapshot(now, sellers, transactions, 10)

		assert.Equal(t, 25.0, snapshot.RankedSellersMonth[0].GoalPercentage)
		assert.Equal(t, 0.0, snapshot.RankedSellersMonth[1].GoalPercentage)
	})

	t.Run("Limite do ranking mensal trunca após a ordenação", func(t *testing.T) {
		transactions := []*domain.Transaction{
			transaction("TX1", nil, "Primeiro", 300, now.Add(-time.Hour)),
			transaction("TX2", nil, "Segundo", 200, now.Add(-time.Hour)),
			transaction("TX3", nil, "Terceiro", 100, now.Add(-time.Hour)),
		}

		snapshot := BuildSnapshot(now, sellers, transactions, 2)

		assert.Len(t, snapshot.RankedSellersMonth, 2)
		assert.Equal(t, "Primeiro", snapshot.RankedSellersMonth[0].Name)
		assert.Equal(t, "Segundo", snapshot.RankedSellersMonth[1].Name)
		// O ranking do dia nunca é truncado.
		assert.Len(t, snapshot.RankedSellersToday, 3)
	})

	t.Run("Valores não finitos contam como zero", func(t *testing.T) {
		transactions := []*domain.Transaction{
			transaction("TX1", stringPtr("SEL001"), "Anna", math.NaN(), now.Add(-time.Hour)),
			transaction("TX2", stringPtr("SEL001"), "Anna", math.Inf(1), now.Add(-time.Hour)),
			transaction("TX3", stringPtr("SEL001"), "Anna", 10, now.Add(-time.Hour)),
		}

		snapshot := BuildSnapshot(now, sellers, transactions, 10)

		assert.Equal(t, 10.0, snapshot.TotalToday)
		assert.Equal(t, 10.0, snapshot.TotalMonth)
	})

	t.Run("Exclusão de venda equivale a recalcular sem ela", func(t *testing.T) {
		withSale := []*domain.Transaction{
			transaction("TX1", stringPtr("SEL001"), "Anna", 100, now.Add(-time.Hour)),
			transaction("TX2", stringPtr("SEL002"), "Johan", 70, now.Add(-time.Hour)),
		}
		withoutSale := withSale[:1]

		before := BuildSnapshot(now, sellers, withSale, 10)
		after := BuildSnapshot(now, sellers, withoutSale, 10)

		assert.Equal(t, 170.0, before.TotalToday)
		assert.Equal(t, 100.0, after.TotalToday)
		assert.Len(t, after.RankedSellersToday, 1)
	})

	t.Run("Recálculo do mesmo conjunto é idempotente", func(t *testing.T) {
		transactions := []*domain.Transaction{
			transaction("TX1", stringPtr("SEL001"), "Anna", 100, now.Add(-time.Hour)),
			transaction("TX2", nil, "Visitante", 100, now.Add(-time.Minute)),
		}

		first := BuildSnapshot(now, sellers, transactions, 10)
		second := BuildSnapshot(now, sellers, transactions, 10)

		assert.Equal(t, first.TotalToday, second.TotalToday)
		assert.Equal(t, first.RankedSellersMonth, second.RankedSellersMonth)
	})
}
