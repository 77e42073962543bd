package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"purchaseledger/internal/model"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrIncompatibleSnapshot is returned by ReplaceFromFile when the file lacks
// one of the service's tables.
var ErrIncompatibleSnapshot = errors.New("snapshot is missing a required table")

// restoreOrder lists the models parents first. Deletes run in reverse.
var restoreOrder = []interface{}{
	&model.Provider{},
	&model.CatalogItem{},
	&model.Purchase{},
	&model.PurchaseLine{},
	&model.CostHistory{},
}

type MaintenanceRepository interface {
	PurgeTransactions(ctx context.Context) error
	PurgeCatalog(ctx context.Context) error
	ReplaceFromFile(ctx context.Context, path string) error
}

type maintenanceRepository struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

// PurgeTransactions empties cost history, lines and purchases, children first.
func (r *maintenanceRepository) PurgeTransactions(ctx context.Context) error {
	db := GetDB(ctx, r.db).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{&model.CostHistory{}, &model.PurchaseLine{}, &model.Purchase{}} {
		if err := db.Delete(m).Error; err != nil {
			return fmt.Errorf("failed to purge %T: %w", m, err)
		}
	}
	return nil
}

// PurgeCatalog empties catalog items and providers. Call PurgeTransactions first.
func (r *maintenanceRepository) PurgeCatalog(ctx context.Context) error {
	db := GetDB(ctx, r.db).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{&model.CatalogItem{}, &model.Provider{}} {
		if err := db.Delete(m).Error; err != nil {
			return fmt.Errorf("failed to purge %T: %w", m, err)
		}
	}
	return nil
}

// ReplaceFromFile overwrites every table of the live SQLite database with the
// rows of the database file at path, in one transaction. The pool keeps its
// connection, so the process serves the restored rows immediately. Columns
// missing from the file keep their defaults.
func (r *maintenanceRepository) ReplaceFromFile(ctx context.Context, path string) error {
	// ATTACH is per connection and not allowed inside a transaction, so pin one.
	return r.db.WithContext(ctx).Connection(func(pinned *gorm.DB) error {
		conn := pinned.Session(&gorm.Session{})
		if err := conn.Exec("ATTACH DATABASE ? AS restored", path).Error; err != nil {
			return fmt.Errorf("failed to attach snapshot: %w", err)
		}
		defer func() {
			if err := conn.Exec("DETACH DATABASE restored").Error; err != nil {
				log.Warn().Err(err).Msg("failed to detach snapshot")
			}
		}()

		tables := make([]string, 0, len(restoreOrder))
		for _, m := range restoreOrder {
			stmt := &gorm.Statement{DB: conn}
			if err := stmt.Parse(m); err != nil {
				return fmt.Errorf("failed to resolve table for %T: %w", m, err)
			}
			tables = append(tables, stmt.Schema.Table)
		}

		return conn.Transaction(func(tx *gorm.DB) error {
			for i := len(tables) - 1; i >= 0; i-- {
				if err := tx.Exec(fmt.Sprintf(`DELETE FROM main.%q`, tables[i])).Error; err != nil {
					return fmt.Errorf("failed to clear %s: %w", tables[i], err)
				}
			}
			for _, table := range tables {
				if err := copyTable(tx, table); err != nil {
					return err
				}
			}
			return backfillNameLower(tx)
		})
	})
}

// copyTable inserts the rows of restored.<table> into main.<table> over the
// columns both schemas share.
func copyTable(tx *gorm.DB, table string) error {
	var live, restored []string
	if err := tx.Raw("SELECT name FROM pragma_table_info(?, 'main')", table).Scan(&live).Error; err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	if err := tx.Raw("SELECT name FROM pragma_table_info(?, 'restored')", table).Scan(&restored).Error; err != nil {
		return fmt.Errorf("failed to read snapshot columns of %s: %w", table, err)
	}
	if len(restored) == 0 {
		return fmt.Errorf("%w: %s", ErrIncompatibleSnapshot, table)
	}

	inSnapshot := make(map[string]bool, len(restored))
	for _, c := range restored {
		inSnapshot[c] = true
	}
	var cols []string
	for _, c := range live {
		if inSnapshot[c] {
			cols = append(cols, fmt.Sprintf("%q", c))
		}
	}
	list := strings.Join(cols, ", ")
	query := fmt.Sprintf(`INSERT INTO main.%q (%s) SELECT %s FROM restored.%q`, table, list, list, table)
	if err := tx.Exec(query).Error; err != nil {
		return fmt.Errorf("failed to copy %s: %w", table, err)
	}
	return nil
}
