package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/database"
	"github.com/customeros/mailbridge/internal/models"
)

type Repositories struct {
	LedgerRepository          interfaces.LedgerRepository
	MailboxRepository         interfaces.MailboxRepository
	RelaySyncRepository       interfaces.RelaySyncRepository
	RelaySubmissionRepository interfaces.RelaySubmissionRepository
}

// InitRepositories wires the Postgres repositories. When memoryLedger is set the sandbox
// state lives in process memory instead.
func InitRepositories(db *gorm.DB, memoryLedger bool) *Repositories {
	ledgerRepository := NewLedgerRepository(db)
	if memoryLedger {
		ledgerRepository = NewMemoryLedgerRepository()
	}

	return &Repositories{
		LedgerRepository:          ledgerRepository,
		MailboxRepository:         NewMailboxRepository(db),
		RelaySyncRepository:       NewRelaySyncRepository(db),
		RelaySubmissionRepository: NewRelaySubmissionRepository(db),
	}
}

func MigrateDB(dbConfig *database.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Account{},
		&models.AccessKey{},
		&models.ExecutionOutcome{},
		&models.Block{},
		&models.Mailbox{},
		&models.RelaySyncState{},
		&models.RelaySubmission{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
