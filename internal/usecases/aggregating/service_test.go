package aggregating

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/sales-celebration/infrastructure/repository/mocks"
	streammocks "github.com/vfg2006/sales-celebration/infrastructure/stream/mocks"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/pkg/log"
	"go.uber.org/mock/gomock"
)

const testWait = 2 * time.Second

func TestMain(m *testing.M) {
	log.SetupTestLogger()
	os.Exit(m.Run())
}

func insertEvent(t *testing.T, transaction *domain.Transaction) domain.ChangeEvent {
	t.Helper()

	row, err := json.Marshal(transaction)
	require.NoError(t, err)

	return domain.ChangeEvent{
		Table: domain.TableTransactions,
		Type:  domain.ChangeInsert,
		Row:   row,
	}
}

func TestService_Subscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransactionRepo := mocks.NewMockTransactionRepository(ctrl)
	mockSellerRepo := mocks.NewMockSellerRepository(ctrl)
	mockSubscriber := streammocks.NewMockSubscriber(ctrl)
	mockStream := streammocks.NewMockStream(ctrl)

	sellers := []*domain.Seller{
		seller("SEL001", "Anna", 50000),
	}

	transactions := []*domain.Transaction{
		transaction("TX1", stringPtr("SEL001"), "Anna", 100, time.Now()),
	}

	events := make(chan domain.ChangeEvent, 8)
	var eventsRecv <-chan domain.ChangeEvent = events

	mockSubscriber.EXPECT().Subscribe(gomock.Any()).Return(mockStream, nil)
	mockStream.EXPECT().Events().Return(eventsRecv).AnyTimes()
	mockStream.EXPECT().Close().Return(nil)

	mockSellerRepo.EXPECT().List(gomock.Any()).Return(sellers, nil).AnyTimes()
	mockTransactionRepo.EXPECT().ListSince(gomock.Any(), gomock.Any()).Return(transactions, nil).AnyTimes()

	service := NewService(mockTransactionRepo, mockSellerRepo, mockSubscriber, config.Aggregator{
		RefreshIntervalSeconds: 3600, // o tick não participa deste teste
		MonthRankingLimit:      10,
	})

	snapshots := make(chan domain.AggregateSnapshot, 8)
	celebrated := make(chan domain.Transaction, 8)

	unsubscribe, err := service.Subscribe(
		context.Background(),
		func(snapshot domain.AggregateSnapshot) { snapshots <- snapshot },
		func(transaction domain.Transaction, seller *domain.Seller) {
			require.NotNil(t, seller)
			assert.Equal(t, "SEL001", seller.ID)
			celebrated <- transaction
		},
	)
	require.NoError(t, err)

	// Snapshot inicial entregue antes de qualquer evento.
	select {
	case snapshot := <-snapshots:
		assert.Equal(t, 100.0, snapshot.TotalMonth)
	case <-time.After(testWait):
		t.Fatal("snapshot inicial não foi entregue")
	}

	// Insert novo: recalcula e celebra.
	newTransaction := transaction("TX2", stringPtr("SEL001"), "Anna", 250, time.Now())
	events <- insertEvent(t, newTransaction)

	select {
	case <-snapshots:
	case <-time.After(testWait):
		t.Fatal("snapshot não foi recalculado após o insert")
	}

	select {
	case observed := <-celebrated:
		assert.Equal(t, "TX2", observed.ID)
		assert.Equal(t, 250.0, observed.Amount)
	case <-time.After(testWait):
		t.Fatal("venda nova não disparou a celebração")
	}

	// Notificação duplicada: recalcula, mas não celebra de novo.
	events <- insertEvent(t, newTransaction)

	select {
	case <-snapshots:
	case <-time.After(testWait):
		t.Fatal("snapshot não foi recalculado após a duplicata")
	}

	select {
	case <-celebrated:
		t.Fatal("notificação duplicada não pode celebrar duas vezes")
	case <-time.After(100 * time.Millisecond):
	}

	// Delete recalcula sem celebrar.
	events <- domain.ChangeEvent{
		Table: domain.TableTransactions,
		Type:  domain.ChangeDelete,
		Row:   json.RawMessage(`{"id":"TX2"}`),
	}

	select {
	case <-snapshots:
	case <-time.After(testWait):
		t.Fatal("snapshot não foi recalculado após o delete")
	}

	select {
	case <-celebrated:
		t.Fatal("delete não pode disparar celebração")
	case <-time.After(100 * time.Millisecond):
	}

	// Unsubscribe é síncrono e idempotente.
	unsubscribe()
	unsubscribe()
}

func TestService_Subscribe_RowMalformada(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransactionRepo := mocks.NewMockTransactionRepository(ctrl)
	mockSellerRepo := mocks.NewMockSellerRepository(ctrl)
	mockSubscriber := streammocks.NewMockSubscriber(ctrl)
	mockStream := streammocks.NewMockStream(ctrl)

	events := make(chan domain.ChangeEvent, 1)
	var eventsRecv <-chan domain.ChangeEvent = events

	mockSubscriber.EXPECT().Subscribe(gomock.Any()).Return(mockStream, nil)
	mockStream.EXPECT().Events().Return(eventsRecv).AnyTimes()
	mockStream.EXPECT().Close().Return(nil)

	mockSellerRepo.EXPECT().List(gomock.Any()).Return([]*domain.Seller{}, nil).AnyTimes()
	mockTransactionRepo.EXPECT().ListSince(gomock.Any(), gomock.Any()).Return([]*domain.Transaction{}, nil).AnyTimes()

	service := NewService(mockTransactionRepo, mockSellerRepo, mockSubscriber, config.Aggregator{
		RefreshIntervalSeconds: 3600,
		MonthRankingLimit:      10,
	})

	snapshots := make(chan domain.AggregateSnapshot, 4)

	unsubscribe, err := service.Subscribe(
		context.Background(),
		func(snapshot domain.AggregateSnapshot) { snapshots <- snapshot },
		func(domain.Transaction, *domain.Seller) {
			t.Error("linha malformada não pode disparar celebração")
		},
	)
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case <-snapshots:
	case <-time.After(testWait):
		t.Fatal("snapshot inicial não foi entregue")
	}

	// Linha que não decodifica: recalcula mesmo assim, sem celebrar.
	events <- domain.ChangeEvent{
		Table: domain.TableTransactions,
		Type:  domain.ChangeInsert,
		Row:   json.RawMessage(`{"id":`),
	}

	select {
	case <-snapshots:
	case <-time.After(testWait):
		t.Fatal("snapshot não foi recalculado após linha malformada")
	}
}
