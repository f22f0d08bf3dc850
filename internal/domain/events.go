package domain

import (
	"encoding/json"
	"fmt"
)

// Tabelas observadas pelo agregador via canal de notificações.
const (
	TableTransactions = "transactions"
	TableSellers      = "sellers"
)

// ChangeType é o tipo de mudança notificada pelo banco.
type ChangeType int

const (
	ChangeInsert ChangeType = iota
	ChangeUpdate
	ChangeDelete
)

func (t ChangeType) String() string {
	switch t {
	case ChangeInsert:
		return "INSERT"
	case ChangeUpdate:
		return "UPDATE"
	case ChangeDelete:
		return "DELETE"
	}
	return "UNKNOWN"
}

// ParseChangeType converte o TG_OP do trigger para o enum fechado.
func ParseChangeType(op string) (ChangeType, error) {
	switch op {
	case "INSERT":
		return ChangeInsert, nil
	case "UPDATE":
		return ChangeUpdate, nil
	case "DELETE":
		return ChangeDelete, nil
	}
	return 0, fmt.Errorf("tipo de mudança desconhecido: %q", op)
}

// ChangeEvent é uma notificação de mudança entregue pelo fluxo de eventos.
// A entrega é ao-menos-uma-vez: o consumidor precisa ser idempotente.
type ChangeEvent struct {
	Table string          `json:"table"`
	Type  ChangeType      `json:"-"`
	Row   json.RawMessage `json:"row"`
}
