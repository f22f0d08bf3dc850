package aggregating

import (
	"sort"
	"strings"
	"time"

	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/pkg/utils"
)

// Resolution é o resultado fechado da resolução de vendedor de uma transação.
type Resolution int

const (
	ResolvedByID Resolution = iota
	ResolvedByName
	Unresolved
)

// ResolveSeller resolve o vendedor de uma transação: primeiro por id exato,
// depois por igualdade de nome sem diferenciar maiúsculas (compatibilidade
// com linhas antigas sem seller_id). Nomes duplicados resolvem para o
// primeiro da lista — o cadastro não garante unicidade de nome.
func ResolveSeller(transaction *domain.Transaction, sellers []*domain.Seller) (*domain.Seller, Resolution) {
	if transaction.SellerID != nil && *transaction.SellerID != "" {
		for _, seller := range sellers {
			if seller.ID == *transaction.SellerID {
				return seller, ResolvedByID
			}
		}
	}

	name := normalizeName(transaction.SellerName)
	for _, seller := range sellers {
		if normalizeName(seller.Name) == name {
			return seller, ResolvedByName
		}
	}

	return nil, Unresolved
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BuildSnapshot recalcula o snapshot inteiro a partir do conjunto de
// transações do mês. Sem matemática incremental: o volume é baixo e o
// recálculo completo torna a entrega ao-menos-uma-vez naturalmente
// idempotente.
func BuildSnapshot(
	now time.Time,
	sellers []*domain.Seller,
	transactions []*domain.Transaction,
	monthRankingLimit int,
) domain.AggregateSnapshot {
	startOfDay := utils.StartOfDay(now)
	startOfMonth := utils.StartOfMonth(now)

	var totalToday, totalMonth float64
	today := newRankingAccumulator()
	month := newRankingAccumulator()

	for _, transaction := range transactions {
		amount := transaction.Amount
		if !utils.IsFinite(amount) {
			// Linha anômala conta zero; nunca derruba o passe inteiro.
			amount = 0
		}

		seller, resolution := ResolveSeller(transaction, sellers)

		var entry domain.RankedSeller
		switch resolution {
		case ResolvedByID, ResolvedByName:
			entry = domain.RankedSeller{
				SellerID:        &seller.ID,
				Name:            seller.Name,
				MonthlyGoal:     seller.MonthlyGoal,
				ProfileImageURL: seller.ProfileImageURL,
			}
		case Unresolved:
			// Conta nos totais sob o nome literal, sem foto nem meta.
			entry = domain.RankedSeller{Name: transaction.SellerName}
		}

		if !transaction.Timestamp.Before(startOfMonth) {
			totalMonth += amount
			month.add(entry, amount)
		}

		if !transaction.Timestamp.Before(startOfDay) {
			totalToday += amount
			today.add(entry, amount)
		}
	}

	return domain.AggregateSnapshot{
		TotalToday:         utils.RoundWithTwoDecimalPlace(totalToday),
		TotalMonth:         utils.RoundWithTwoDecimalPlace(totalMonth),
		RankedSellersToday: today.ranked(0),
		RankedSellersMonth: month.ranked(monthRankingLimit),
		GeneratedAt:        now,
	}
}

// rankingAccumulator agrupa por nome de exibição preservando a ordem de
// primeiro encontro, que é o critério de desempate do ranking.
type rankingAccumulator struct {
	order []*domain.RankedSeller
	index map[string]*domain.RankedSeller
}

func newRankingAccumulator() *rankingAccumulator {
	return &rankingAccumulator{
		index: make(map[string]*domain.RankedSeller),
	}
}

func (a *rankingAccumulator) add(entry domain.RankedSeller, amount float64) {
	key := normalizeName(entry.Name)

	existing, ok := a.index[key]
	if !ok {
		copied := entry
		a.order = append(a.order, &copied)
		a.index[key] = &copied
		existing = &copied
	}

	existing.Total += amount
}

// ranked ordena por total decrescente com sort estável: empates mantêm a
// ordem de primeiro encontro e o recálculo do mesmo conjunto é idempotente.
func (a *rankingAccumulator) ranked(limit int) []domain.RankedSeller {
	entries := make([]domain.RankedSeller, 0, len(a.order))
	for _, entry := range a.order {
		entries = append(entries, *entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	for i := range entries {
		entries[i].Position = i + 1
		entries[i].Total = utils.RoundWithTwoDecimalPlace(entries[i].Total)
		if entries[i].MonthlyGoal > 0 {
			entries[i].GoalPercentage = utils.RoundWithTwoDecimalPlace(
				entries[i].Total / entries[i].MonthlyGoal * 100,
			)
		}
	}

	return entries
}
