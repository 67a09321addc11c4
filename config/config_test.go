package config

import (
	"os"
	"testing"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/internal/ledger"
)

func setRequired(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	t.Setenv("MAILBRIDGE_POSTGRES_HOST", "localhost")
	t.Setenv("MAILBRIDGE_POSTGRES_PORT", "5432")
	t.Setenv("MAILBRIDGE_POSTGRES_USER", "postgres")
	t.Setenv("MAILBRIDGE_POSTGRES_DB_NAME", "mailbridge")
	t.Setenv("MAILBRIDGE_POSTGRES_PASSWORD", "postgres")
}

func TestParse_Defaults(t *testing.T) {
	// Arrange
	setRequired(t)
	cfg := newConfig()

	// Act
	err := env.Parse(cfg)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "12222", cfg.AppConfig.APIPort)
	assert.Equal(t, "bridge.near", cfg.BridgeConfig.AccountID)
	assert.Equal(t, "relay.near", cfg.RelayConfig.SignerAccountID)
	assert.Equal(t, "bridge.near", cfg.RelayConfig.ReceiverID)
	assert.Equal(t, uint64(300), cfg.RelayConfig.TxGasTera)
	assert.Equal(t, []string{"INBOX"}, cfg.RelayConfig.ImapFolders)
	assert.Equal(t, "keyring.yaml", cfg.KeyringConfig.Path)
	assert.False(t, cfg.SandboxConfig.InMemory)
	assert.False(t, cfg.R2StorageConfig.Configured())
}

func TestParse_MissingAPIKey(t *testing.T) {
	// Arrange
	setRequired(t)
	require.NoError(t, os.Unsetenv("API_KEY"))
	cfg := newConfig()

	// Act
	err := env.Parse(cfg)

	// Assert
	assert.Error(t, err)
}

func TestBridgeConfig_Contract(t *testing.T) {
	// Arrange
	setRequired(t)
	t.Setenv("BRIDGE_CALL_GAS_TGAS", "150")
	cfg := newConfig()
	require.NoError(t, env.Parse(cfg))

	// Act
	contract, err := cfg.BridgeConfig.Contract()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "actuator", contract.ActuatorCodeID)
	assert.Equal(t, "4200000000000000000000000", contract.MinReserve.String())
	assert.Equal(t, 200*ledger.TGas, contract.InitGas)
	assert.Equal(t, 150*ledger.TGas, contract.CallGas)
	assert.Equal(t, ledger.GasWeight(1), contract.CallWeight)
}

func TestBridgeConfig_InvalidReserve(t *testing.T) {
	cfg := &BridgeConfig{AccountID: "bridge.near", ActuatorCodeID: "actuator", MinReserve: "-1"}

	_, err := cfg.Contract()

	assert.Error(t, err)
}

func TestBridgeConfig_Account(t *testing.T) {
	cfg := &BridgeConfig{AccountID: "Bridge.near"}

	_, err := cfg.Account()

	assert.Error(t, err)
}

func TestInitOfflineConfig_NeedsNoCredentials(t *testing.T) {
	// Arrange
	t.Setenv("KEYRING_PATH", "/etc/mailbridge/keyring.toml")
	t.Setenv("BRIDGE_ACCOUNT_ID", "mail.testnet")

	// Act
	cfg, err := InitOfflineConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/etc/mailbridge/keyring.toml", cfg.KeyringConfig.Path)
	assert.Equal(t, "mail.testnet", cfg.BridgeConfig.AccountID)
	assert.Nil(t, cfg.AppConfig)
}
