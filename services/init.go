package services

import (
	"context"
	"crypto/rand"

	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/contracts/actuator"
	"github.com/customeros/mailbridge/contracts/bridge"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/keyring"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/mailauth"
	"github.com/customeros/mailbridge/internal/repository"
	"github.com/customeros/mailbridge/services/chain"
	"github.com/customeros/mailbridge/services/events"
	"github.com/customeros/mailbridge/services/imap"
	"github.com/customeros/mailbridge/services/relay"
	"github.com/customeros/mailbridge/services/storage"
)

type Services struct {
	Keyring       *keyring.Keyring
	Bridge        *bridge.Bridge
	BridgeAccount ledger.AccountID
	Sandbox       *chain.Sandbox
	Submitter     *relay.Submitter
	EventsService *events.EventsService
	IMAPService   *imap.IMAPService
	// Archive is nil when object storage is not configured.
	Archive interfaces.EmailArchive
}

func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	ring, err := keyring.Load(cfg.KeyringConfig.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load key-ring")
	}
	log.Infof("Loaded %d key-ring entries from %s", ring.Len(), cfg.KeyringConfig.Path)

	// ledger
	bridgeCfg, err := cfg.BridgeConfig.Contract()
	if err != nil {
		return nil, err
	}
	bridgeAccount, err := cfg.BridgeConfig.Account()
	if err != nil {
		return nil, errors.Wrap(err, "BRIDGE_ACCOUNT_ID")
	}
	bridgeContract := bridge.New(bridgeCfg, mailauth.NewAuthenticator(ring))

	sandbox := chain.NewSandbox(chain.Config{
		BaseCallGas: ledger.Gas(cfg.SandboxConfig.BaseCallGasTera) * ledger.TGas,
	}, log, repos.LedgerRepository)
	sandbox.Register(bridge.CodeID, bridgeContract)
	sandbox.Register(cfg.BridgeConfig.ActuatorCodeID, actuator.Program{})

	// relay
	relayCfg, err := relayConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	err = sandbox.Genesis(ctx,
		chain.GenesisAccount{
			AccountID: bridgeAccount,
			Balance:   ledger.NearAmount(cfg.SandboxConfig.BridgeGenesisBalance),
			CodeID:    bridge.CodeID,
		},
		chain.GenesisAccount{
			AccountID: relayCfg.SignerID,
			Balance:   ledger.NearAmount(cfg.SandboxConfig.RelayGenesisBalance),
			Keys:      []ledger.PublicKey{relayCfg.SecretKey.PublicKey()},
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "genesis failed")
	}

	submitter := relay.NewSubmitter(relayCfg, log, sandbox, repos.RelaySubmissionRepository)

	// events
	publisherConfig := &events.PublisherConfig{
		MessageTTL:          events.DefaultMessageTTL,
		MaxRetries:          events.DefaultMaxRetries,
		PublishTimeout:      events.DefaultPublishTimeout,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	subscriberConfig := &events.SubscriberConfig{
		MaxRetries:          events.DefaultMaxRetries,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, publisherConfig, subscriberConfig)
	if err != nil {
		return nil, err
	}

	services := Services{
		Keyring:       ring,
		Bridge:        bridgeContract,
		BridgeAccount: bridgeAccount,
		Sandbox:       sandbox,
		Submitter:     submitter,
		EventsService: eventsService,
		IMAPService:   imap.NewIMAPService(log, repos.MailboxRepository, repos.RelaySyncRepository, eventsService.Publisher),
	}

	if cfg.RelayConfig.ArchiveEnabled {
		if !cfg.R2StorageConfig.Configured() {
			return nil, errors.New("RELAY_ARCHIVE_ENABLED requires CLOUDFLARE_R2_* credentials")
		}
		archive, err := storage.NewR2ArchiveService(
			cfg.R2StorageConfig.AccountID,
			cfg.R2StorageConfig.AccessKeyID,
			cfg.R2StorageConfig.AccessKeySecret,
			cfg.R2StorageConfig.RawEmailBucket,
		)
		if err != nil {
			return nil, err
		}
		services.Archive = archive
	}

	return &services, nil
}

func relayConfig(cfg *config.Config, log logger.Logger) (relay.Config, error) {
	signer, err := ledger.ParseAccountID(cfg.RelayConfig.SignerAccountID)
	if err != nil {
		return relay.Config{}, errors.Wrap(err, "RELAY_SIGNER_ACCOUNT_ID")
	}
	receiver, err := ledger.ParseAccountID(cfg.RelayConfig.ReceiverID)
	if err != nil {
		return relay.Config{}, errors.Wrap(err, "RELAY_RECEIVER_ID")
	}

	var secret ledger.SecretKey
	if cfg.RelayConfig.SignerSecretKey != "" {
		secret, err = ledger.ParseSecretKey(cfg.RelayConfig.SignerSecretKey)
		if err != nil {
			return relay.Config{}, errors.Wrap(err, "RELAY_SIGNER_SECRET_KEY")
		}
	} else {
		secret, err = ledger.GenerateSecretKey(rand.Reader)
		if err != nil {
			return relay.Config{}, err
		}
		if !cfg.SandboxConfig.InMemory {
			// genesis skips existing accounts, so a persisted relay account keeps its old key
			log.Warn("RELAY_SIGNER_SECRET_KEY is empty and the ledger is persistent; the relay key changes on every restart")
		}
		log.Infof("Generated relay key %s", secret.PublicKey())
	}

	return relay.Config{
		SignerID:   signer,
		SecretKey:  secret,
		ReceiverID: receiver,
		TxGas:      ledger.Gas(cfg.RelayConfig.TxGasTera) * ledger.TGas,
	}, nil
}
