package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/asset-market/internal/core/domain"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

// MySQLAdapter keeps the durable copy of the sale ledger.
//
// Schema:
//
//	CREATE TABLE sales (
//	    id                 BIGINT UNSIGNED PRIMARY KEY,
//	    seller             VARCHAR(128) NOT NULL,
//	    kind               VARCHAR(16)  NOT NULL,
//	    asset_id           BIGINT UNSIGNED NOT NULL,
//	    unit_price         BIGINT UNSIGNED NOT NULL,
//	    total_quantity     BIGINT UNSIGNED NOT NULL,
//	    remaining_quantity BIGINT UNSIGNED NOT NULL,
//	    start_time         BIGINT NOT NULL,
//	    end_time           BIGINT NOT NULL,
//	    outcome            VARCHAR(16) NOT NULL,
//	    version            INT NOT NULL,
//	    created_at         DATETIME NOT NULL,
//	    updated_at         DATETIME NOT NULL
//	);
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) SaveSale(ctx context.Context, sale domain.Sale) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sales (id, seller, kind, asset_id, unit_price, total_quantity,
			remaining_quantity, start_time, end_time, outcome, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.Seller, sale.Kind, sale.AssetID, sale.UnitPrice, sale.Total,
		sale.Remaining, sale.Start, sale.End, sale.Outcome, sale.Version,
		sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateSale(ctx context.Context, sale domain.Sale) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE sales
		SET remaining_quantity = ?, outcome = ?, version = ?, updated_at = ?
		WHERE id = ? AND version < ?`,
		sale.Remaining, sale.Outcome, sale.Version, sale.UpdatedAt,
		sale.ID, sale.Version,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (m *MySQLAdapter) GetSale(ctx context.Context, id uint64) (*domain.Sale, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, seller, kind, asset_id, unit_price, total_quantity,
			remaining_quantity, start_time, end_time, outcome, version, created_at, updated_at
		FROM sales WHERE id = ?`, id,
	)

	var sale domain.Sale
	err := scanSale(row.Scan, &sale)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sale: %w", err)
	}
	return &sale, nil
}

func (m *MySQLAdapter) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, seller, kind, asset_id, unit_price, total_quantity,
			remaining_quantity, start_time, end_time, outcome, version, created_at, updated_at
		FROM sales ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		var sale domain.Sale
		if err := scanSale(rows.Scan, &sale); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

func scanSale(scan func(...any) error, sale *domain.Sale) error {
	return scan(
		&sale.ID, &sale.Seller, &sale.Kind, &sale.AssetID, &sale.UnitPrice, &sale.Total,
		&sale.Remaining, &sale.Start, &sale.End, &sale.Outcome, &sale.Version,
		&sale.CreatedAt, &sale.UpdatedAt,
	)
}
