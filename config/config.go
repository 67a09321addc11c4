package config

import (
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/contracts/bridge"
	"github.com/customeros/mailbridge/internal/ledger"
)

type AppConfig struct {
	APIPort     string `env:"PORT,required" envDefault:"12222"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	// Identity and namespace used for cron leader election inside a cluster.
	PodName      string `env:"POD_NAME" envDefault:"local"`
	PodNamespace string `env:"POD_NAMESPACE" envDefault:"default"`
}

type DatabaseConfig struct {
	Host            string `env:"MAILBRIDGE_POSTGRES_HOST,required"`
	Port            string `env:"MAILBRIDGE_POSTGRES_PORT,required"`
	User            string `env:"MAILBRIDGE_POSTGRES_USER,required"`
	DBName          string `env:"MAILBRIDGE_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILBRIDGE_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILBRIDGE_POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"MAILBRIDGE_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"MAILBRIDGE_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"MAILBRIDGE_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILBRIDGE_POSTGRES_SSL_MODE" envDefault:"disable"`
}

// BridgeConfig is the deployment configuration of the bridge contract.
type BridgeConfig struct {
	AccountID      string `env:"BRIDGE_ACCOUNT_ID" envDefault:"bridge.near"`
	ActuatorCodeID string `env:"BRIDGE_ACTUATOR_CODE_ID" envDefault:"actuator"`
	// MinReserve in smallest units.
	MinReserve  string `env:"BRIDGE_MIN_RESERVE" envDefault:"4200000000000000000000000"`
	InitGasTera uint64 `env:"BRIDGE_INIT_GAS_TGAS" envDefault:"200"`
	CallGasTera uint64 `env:"BRIDGE_CALL_GAS_TGAS" envDefault:"200"`
	CallWeight  uint64 `env:"BRIDGE_CALL_GAS_WEIGHT" envDefault:"1"`
}

type KeyringConfig struct {
	Path string `env:"KEYRING_PATH" envDefault:"keyring.yaml"`
}

type RelayConfig struct {
	SignerAccountID string `env:"RELAY_SIGNER_ACCOUNT_ID" envDefault:"relay.near"`
	// SignerSecretKey is "ed25519:<base58>". When empty a key is generated at startup,
	// which only works against the sandbox.
	SignerSecretKey string `env:"RELAY_SIGNER_SECRET_KEY"`
	ReceiverID      string `env:"RELAY_RECEIVER_ID" envDefault:"bridge.near"`
	TxGasTera       uint64 `env:"RELAY_TX_GAS_TGAS" envDefault:"300"`
	ArchiveEnabled  bool   `env:"RELAY_ARCHIVE_ENABLED" envDefault:"false"`

	// Mailbox registered at startup when ImapServer is set.
	ImapServer   string   `env:"RELAY_IMAP_SERVER"`
	ImapPort     int      `env:"RELAY_IMAP_PORT" envDefault:"993"`
	ImapUsername string   `env:"RELAY_IMAP_USERNAME"`
	ImapPassword string   `env:"RELAY_IMAP_PASSWORD"`
	ImapTLS      bool     `env:"RELAY_IMAP_TLS" envDefault:"true"`
	ImapFolders  []string `env:"RELAY_IMAP_FOLDERS" envSeparator:"," envDefault:"INBOX"`
	EmailAddress string   `env:"RELAY_EMAIL_ADDRESS"`
}

type SandboxConfig struct {
	InMemory bool `env:"SANDBOX_IN_MEMORY" envDefault:"false"`
	// Genesis balances in whole tokens.
	BridgeGenesisBalance int64  `env:"SANDBOX_BRIDGE_GENESIS_BALANCE" envDefault:"1000"`
	RelayGenesisBalance  int64  `env:"SANDBOX_RELAY_GENESIS_BALANCE" envDefault:"100"`
	BaseCallGasTera      uint64 `env:"SANDBOX_BASE_CALL_GAS_TGAS" envDefault:"5"`
}

type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	RawEmailBucket  string `env:"BUCKET_NAME_RAW_EMAIL" envDefault:"raw-emails"`
}

func (c *R2StorageConfig) Configured() bool {
	return c != nil && c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != ""
}

// Contract converts the env representation into the bridge contract configuration.
func (c *BridgeConfig) Contract() (bridge.Config, error) {
	reserve, err := ledger.ParseBalance(c.MinReserve)
	if err != nil {
		return bridge.Config{}, errors.Wrap(err, "BRIDGE_MIN_RESERVE")
	}
	if c.ActuatorCodeID == "" {
		return bridge.Config{}, errors.New("BRIDGE_ACTUATOR_CODE_ID is empty")
	}
	return bridge.Config{
		ActuatorCodeID: c.ActuatorCodeID,
		MinReserve:     reserve,
		InitGas:        ledger.Gas(c.InitGasTera) * ledger.TGas,
		CallGas:        ledger.Gas(c.CallGasTera) * ledger.TGas,
		CallWeight:     ledger.GasWeight(c.CallWeight),
	}, nil
}

func (c *BridgeConfig) Account() (ledger.AccountID, error) {
	return ledger.ParseAccountID(c.AccountID)
}
