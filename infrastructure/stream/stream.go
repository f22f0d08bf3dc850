// Package stream entrega notificações de mudança do banco para o agregador.
package stream

import (
	"context"

	"github.com/vfg2006/sales-celebration/internal/domain"
)

//go:generate mockgen -destination=mocks/stream.go -package=mocks github.com/vfg2006/sales-celebration/infrastructure/stream Subscriber,Stream

// Subscriber abre um fluxo de eventos de mudança das tabelas observadas.
type Subscriber interface {
	Subscribe(ctx context.Context) (Stream, error)
}

// Stream é uma assinatura ativa. Events fecha quando o fluxo termina;
// Close encerra a assinatura de forma síncrona (recurso com escopo:
// adquirido no Subscribe, liberado por inteiro no Close).
type Stream interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}
