package models

import (
	"time"
)

// Account is a ledger account in the sandbox host. Balance is a decimal string in
// smallest units.
type Account struct {
	AccountID string    `gorm:"column:account_id;type:varchar(64);primaryKey"`
	Balance   string    `gorm:"column:balance;type:varchar(80);not null;default:'0'"`
	CodeID    string    `gorm:"column:code_id;type:varchar(50)"`
	State     JSONRaw   `gorm:"column:state;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Account) TableName() string {
	return "accounts"
}

type AccessKey struct {
	ID         string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	AccountID  string    `gorm:"column:account_id;type:varchar(64);not null;uniqueIndex:idx_access_key_account_key"`
	PublicKey  string    `gorm:"column:public_key;type:varchar(100);not null;uniqueIndex:idx_access_key_account_key"`
	Nonce      uint64    `gorm:"column:nonce;not null;default:0"`
	Permission string    `gorm:"column:permission;type:varchar(20);not null;default:'FullAccess'"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (AccessKey) TableName() string {
	return "access_keys"
}
