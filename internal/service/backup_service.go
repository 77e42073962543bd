package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"purchaseledger/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Purge modes
const (
	PurgeTransactionsOnly = "transactions_only"
	PurgeFullWipe         = "full_wipe"
)

var sqliteMagic = []byte("SQLite format 3\x00")

type PurgeRequest struct {
	Mode string `json:"mode" validate:"required"`
}

type BackupService interface {
	// Snapshot writes a consistent copy of the SQLite database to w.
	Snapshot(ctx context.Context, w io.Writer) error
	// Restore replaces every row of the live database with the contents of
	// the SQLite file read from r. The service keeps running on the restored data.
	Restore(ctx context.Context, r io.Reader) error
	Purge(ctx context.Context, mode string) error
}

type backupService struct {
	db              *gorm.DB
	dbPath          string // empty when the database is not a single file
	maintenanceRepo repository.MaintenanceRepository
	txManager       repository.TransactionManager
}

func NewBackupService(db *gorm.DB, dbPath string, maintenanceRepo repository.MaintenanceRepository, txManager repository.TransactionManager) BackupService {
	return &backupService{db: db, dbPath: dbPath, maintenanceRepo: maintenanceRepo, txManager: txManager}
}

func (s *backupService) requireFile() error {
	if s.dbPath == "" {
		return fmt.Errorf("%w: database file backup needs the sqlite driver", ErrUnsupported)
	}
	return nil
}

func (s *backupService) Snapshot(ctx context.Context, w io.Writer) error {
	if err := s.requireFile(); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "purchaseledger-snapshot-")
	if err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	defer os.RemoveAll(dir)

	snapshot := filepath.Join(dir, "snapshot.db")
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", snapshot).Error; err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}

	f, err := os.Open(snapshot)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to stream snapshot: %w", err)
	}
	return nil
}

func (s *backupService) Restore(ctx context.Context, r io.Reader) error {
	if err := s.requireFile(); err != nil {
		return err
	}

	head := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(r, head); err != nil || !bytes.Equal(head, sqliteMagic) {
		return invalid("uploaded file is not a SQLite database")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.dbPath), ".restore-*.db")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, io.MultiReader(bytes.NewReader(head), r)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close upload: %w", err)
	}

	if err := s.maintenanceRepo.ReplaceFromFile(ctx, tmpPath); err != nil {
		if errors.Is(err, repository.ErrIncompatibleSnapshot) {
			return invalid("uploaded database does not match this service: %v", err)
		}
		return fmt.Errorf("failed to restore database: %w", err)
	}

	log.Warn().Str("path", s.dbPath).Msg("database restored from upload")
	return nil
}

func (s *backupService) Purge(ctx context.Context, mode string) error {
	if mode != PurgeTransactionsOnly && mode != PurgeFullWipe {
		return invalid("unknown purge mode %q", mode)
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.maintenanceRepo.PurgeTransactions(txCtx); err != nil {
			return err
		}
		if mode == PurgeFullWipe {
			return s.maintenanceRepo.PurgeCatalog(txCtx)
		}
		return nil
	})
}
