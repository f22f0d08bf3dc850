// Package repository contém as implementações dos repositórios para acesso aos dados
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/sales-celebration/infrastructure/database/postgres"
	"github.com/vfg2006/sales-celebration/internal/domain"
	"github.com/vfg2006/sales-celebration/pkg/utils"
)

const (
	transactionsTable = "transactions t"
)

type TransactionRepository interface {
	ListSince(ctx context.Context, since time.Time) ([]*domain.Transaction, error)
	Insert(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error)
	Delete(ctx context.Context, id string) error
}

type transactionRepository struct {
	conn *postgres.Connection
}

func NewTransactionRepository(conn *postgres.Connection) TransactionRepository {
	return &transactionRepository{
		conn: conn,
	}
}

// ListSince retorna as transações a partir do instante informado (inclusivo),
// em ordem de inserção. É a carga usada em todo recálculo do snapshot.
func (r *transactionRepository) ListSince(ctx context.Context, since time.Time) ([]*domain.Transaction, error) {
	query, args, err := squirrel.
		Select(
			"t.id",
			"t.seller_id",
			"t.seller_name",
			"t.amount",
			"t.timestamp",
		).
		From(transactionsTable).
		Where(squirrel.GtOrEq{"t.timestamp": since}).
		OrderBy("t.timestamp ASC", "t.id ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao executar a query: %w", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)

	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear transação: %w", err)
		}

		transactions = append(transactions, transaction)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return transactions, nil
}

func (r *transactionRepository) Insert(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if transaction.ID == "" {
		id, err := utils.GenerateID()
		if err != nil {
			return nil, fmt.Errorf("erro ao gerar id da transação: %w", err)
		}
		transaction.ID = id
	}

	if transaction.Timestamp.IsZero() {
		transaction.Timestamp = time.Now()
	}

	query, args, err := squirrel.
		Insert("transactions").
		Columns("id", "seller_id", "seller_name", "amount", "timestamp").
		Values(
			transaction.ID,
			transaction.SellerID,
			transaction.SellerName,
			transaction.Amount,
			transaction.Timestamp,
		).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	// O insert e o trigger de notificação precisam ir juntos para o canal de
	// eventos nunca anunciar uma linha que não foi confirmada.
	err = r.conn.RunInTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao inserir transação: %w", err)
	}

	return transaction, nil
}

func (r *transactionRepository) Delete(ctx context.Context, id string) error {
	query, args, err := squirrel.
		Delete("transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("erro ao construir a query: %w", err)
	}

	result, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("erro ao excluir transação: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("erro ao verificar linhas afetadas: %w", err)
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var sellerID sql.NullString

	err := rows.Scan(
		&transaction.ID,
		&sellerID,
		&transaction.SellerName,
		&transaction.Amount,
		&transaction.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if sellerID.Valid {
		transaction.SellerID = &sellerID.String
	}

	return &transaction, nil
}
