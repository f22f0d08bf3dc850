package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/vfg2006/sales-celebration/infrastructure/database/postgres"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

const (
	sellersTable = "sellers s"
)

type SellerRepository interface {
	List(ctx context.Context) ([]*domain.Seller, error)
}

type sellerRepository struct {
	conn *postgres.Connection
}

func NewSellerRepository(conn *postgres.Connection) SellerRepository {
	return &sellerRepository{
		conn: conn,
	}
}

func (r *sellerRepository) List(ctx context.Context) ([]*domain.Seller, error) {
	query, args, err := squirrel.
		Select(
			"s.id",
			"s.name",
			"s.profile_image_url",
			"s.sound_asset_url",
			"s.monthly_goal",
			"s.updated_at",
		).
		From(sellersTable).
		OrderBy("s.name ASC").
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

	sellers := make([]*domain.Seller, 0)

	for rows.Next() {
		seller, err := scanSeller(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear vendedor: %w", err)
		}

		sellers = append(sellers, seller)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro durante a iteração de linhas: %w", err)
	}

	return sellers, nil
}

func scanSeller(rows *sql.Rows) (*domain.Seller, error) {
	var seller domain.Seller
	var profileImageURL, soundAssetURL sql.NullString

	err := rows.Scan(
		&seller.ID,
		&seller.Name,
		&profileImageURL,
		&soundAssetURL,
		&seller.MonthlyGoal,
		&seller.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if profileImageURL.Valid {
		seller.ProfileImageURL = &profileImageURL.String
	}
	if soundAssetURL.Valid {
		seller.SoundAssetURL = &soundAssetURL.String
	}

	return &seller, nil
}
