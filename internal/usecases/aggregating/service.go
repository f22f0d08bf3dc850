// Package aggregating mantém os totais e rankings ao vivo a partir do fluxo
// de eventos de transações.
package aggregating

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/infrastructure/repository"
	"github.com/vfg2006/sales-celebration/infrastructure/stream"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/pkg/utils"
)

// SnapshotFunc recebe cada snapshot recalculado.
type SnapshotFunc func(domain.AggregateSnapshot)

// TransactionFunc recebe cada transação nova observada, já com o vendedor
// resolvido (nil quando não cadastrado).
type TransactionFunc func(domain.Transaction, *domain.Seller)

type Aggregator interface {
	Subscribe(ctx context.Context, onSnapshot SnapshotFunc, onNewTransaction TransactionFunc) (func(), error)
}

type Service struct {
	transactionRepo repository.TransactionRepository
	sellerRepo      repository.SellerRepository
	subscriber      stream.Subscriber
	cfg             config.Aggregator

	now func() time.Time
}

func NewService(
	transactionRepo repository.TransactionRepository,
	sellerRepo repository.SellerRepository,
	subscriber stream.Subscriber,
	cfg config.Aggregator,
) *Service {
	return &Service{
		transactionRepo: transactionRepo,
		sellerRepo:      sellerRepo,
		subscriber:      subscriber,
		cfg:             cfg,
		now:             time.Now,
	}
}

// Subscribe calcula o snapshot inicial, entrega imediatamente via onSnapshot
// e passa a reagir às notificações do banco e ao tick defensivo. A função
// retornada desfaz a assinatura de forma síncrona: fluxo de eventos fechado,
// agendador parado e loop encerrado antes de retornar.
func (s *Service) Subscribe(
	ctx context.Context,
	onSnapshot SnapshotFunc,
	onNewTransaction TransactionFunc,
) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	eventStream, err := s.subscriber.Subscribe(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &subscription{
		service:          s,
		stream:           eventStream,
		onSnapshot:       onSnapshot,
		onNewTransaction: onNewTransaction,
		seen:             make(map[string]struct{}),
		ticks:            make(chan struct{}, 1),
		stopped:          make(chan struct{}),
	}

	// Carga inicial: lista de vendedores + snapshot imediato.
	sub.reloadSellers(subCtx)
	sub.recompute(subCtx, nil)

	scheduler := gocron.NewScheduler(time.Local)
	_, err = scheduler.Every(s.cfg.RefreshInterval()).Do(func() {
		// Tick não bloqueante: se o loop estiver ocupado, um tick basta.
		select {
		case sub.ticks <- struct{}{}:
		default:
		}
	})
	if err != nil {
		cancel()
		_ = eventStream.Close()
		return nil, err
	}
	scheduler.StartAsync()

	logrus.WithFields(logrus.Fields{
		"refresh_interval": s.cfg.RefreshInterval().String(),
	}).Info("Agregador de vendas assinado")

	go sub.loop(subCtx)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			scheduler.Stop()
			_ = eventStream.Close()
			<-sub.stopped
			logrus.Info("Assinatura do agregador de vendas encerrada")
		})
	}

	return unsubscribe, nil
}

// subscription concentra o estado de uma assinatura. Todo o processamento —
// eventos, ticks e callbacks — roda em uma única goroutine (loop), o que
// serializa os callbacks e dispensa lock no estado.
type subscription struct {
	service          *Service
	stream           stream.Stream
	onSnapshot       SnapshotFunc
	onNewTransaction TransactionFunc

	sellers []*domain.Seller
	seen    map[string]struct{}

	ticks   chan struct{}
	stopped chan struct{}
}

func (sub *subscription) loop(ctx context.Context) {
	defer close(sub.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.stream.Events():
			if !ok {
				return
			}
			sub.handleEvent(ctx, event)
		case <-sub.ticks:
			// Recálculo defensivo: recupera qualquer notificação perdida.
			logrus.Debug("Tick defensivo do agregador")
			sub.recompute(ctx, nil)
		}
	}
}

func (sub *subscription) handleEvent(ctx context.Context, event domain.ChangeEvent) {
	switch event.Table {
	case domain.TableSellers:
		sub.reloadSellers(ctx)
		sub.recompute(ctx, nil)
		return
	case domain.TableTransactions:
	default:
		logrus.WithField("table", event.Table).Debug("Evento de tabela não observada ignorado")
		return
	}

	switch event.Type {
	case domain.ChangeInsert:
		transaction, err := parseTransactionRow(event.Row)
		if err != nil {
			logrus.WithError(err).Warn("Linha de transação malformada na notificação; recalculando mesmo assim")
			sub.recompute(ctx, nil)
			return
		}

		if _, duplicated := sub.seen[transaction.ID]; duplicated {
			// Entrega ao-menos-uma-vez: o recálculo é idempotente, mas a
			// celebração não pode repetir.
			logrus.WithField("transaction_id", transaction.ID).Debug("Notificação duplicada ignorada para celebração")
			sub.recompute(ctx, nil)
			return
		}
		sub.seen[transaction.ID] = struct{}{}

		sub.recompute(ctx, transaction)

	case domain.ChangeUpdate, domain.ChangeDelete:
		// Exclusão (ou correção) recalcula sem celebrar.
		sub.recompute(ctx, nil)
	}
}

func (sub *subscription) reloadSellers(ctx context.Context) {
	sellers, err := sub.service.sellerRepo.List(ctx)
	if err != nil {
		// Mantém a última lista conhecida; o próximo tick tenta de novo.
		logrus.WithError(err).Error("Erro ao carregar lista de vendedores")
		return
	}

	sub.sellers = sellers
}

// recompute refaz o snapshot completo e notifica os assinantes. Quando
// newTransaction não é nil, dispara também o fluxo de celebração.
func (sub *subscription) recompute(ctx context.Context, newTransaction *domain.Transaction) {
	now := sub.service.now()

	transactions, err := sub.service.transactionRepo.ListSince(ctx, utils.StartOfMonth(now))
	if err != nil {
		// Snapshot anterior continua valendo; o tick defensivo é o backstop.
		logrus.WithError(err).Error("Erro ao carregar transações para o recálculo")
		return
	}

	snapshot := BuildSnapshot(now, sub.sellers, transactions, sub.service.cfg.MonthRankingLimit)

	if sub.onSnapshot != nil {
		sub.onSnapshot(snapshot)
	}

	if newTransaction != nil && sub.onNewTransaction != nil {
		seller, _ := ResolveSeller(newTransaction, sub.sellers)
		logrus.WithFields(logrus.Fields{
			"transaction_id": newTransaction.ID,
			"seller_name":    newTransaction.SellerName,
			"amount":         utils.FormatBRL(newTransaction.Amount),
		}).Info("Nova venda observada")
		sub.onNewTransaction(*newTransaction, seller)
	}
}

func parseTransactionRow(row json.RawMessage) (*domain.Transaction, error) {
	var transaction domain.Transaction
	if err := json.Unmarshal(row, &transaction); err != nil {
		return nil, err
	}
	return &transaction, nil
}
