package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/customeros/mailbridge/internal/enum"
)

// ExecutionOutcome records the result of a transaction or receipt. ID is the
// transaction hash or the receipt id.
type ExecutionOutcome struct {
	ID          string             `gorm:"column:id;type:varchar(64);primaryKey"`
	Kind        enum.OutcomeKind   `gorm:"column:kind;type:varchar(20);not null"`
	TxHash      string             `gorm:"column:tx_hash;type:varchar(64);index;not null"`
	Signer      string             `gorm:"column:signer;type:varchar(64)"`
	Predecessor string             `gorm:"column:predecessor;type:varchar(64)"`
	Receiver    string             `gorm:"column:receiver;type:varchar(64);index"`
	Actions     JSONRaw            `gorm:"column:actions;type:jsonb"`
	Status      enum.OutcomeStatus `gorm:"column:status;type:varchar(20);not null"`
	Error       string             `gorm:"column:error;type:text"`
	ErrorKind   string             `gorm:"column:error_kind;type:varchar(50)"`
	Logs        pq.StringArray     `gorm:"column:logs;type:text[]"`
	ReceiptIDs  pq.StringArray     `gorm:"column:receipt_ids;type:text[]"`
	GasBurnt    uint64             `gorm:"column:gas_burnt;not null;default:0"`
	BlockHeight uint64             `gorm:"column:block_height;index"`
	CreatedAt   time.Time          `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (ExecutionOutcome) TableName() string {
	return "execution_outcomes"
}

type Block struct {
	Height     uint64         `gorm:"column:height;primaryKey;autoIncrement:false"`
	ReceiptIDs pq.StringArray `gorm:"column:receipt_ids;type:text[]"`
	ProducedAt time.Time      `gorm:"column:produced_at;type:timestamp;not null"`
}

func (Block) TableName() string {
	return "blocks"
}
