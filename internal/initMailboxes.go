package internal

import (
	"context"
	"fmt"

	"github.com/customeros/mailbridge/config"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
)

// InitMailboxes registers the env-configured relay mailbox, then hands every enabled
// mailbox to the poller.
func InitMailboxes(ctx context.Context, cfg *config.RelayConfig, log logger.Logger, mailboxes interfaces.MailboxRepository, poller interfaces.IMAPService) error {
	log.Info("Initializing mailbox connections...")

	if cfg.ImapServer != "" {
		if err := upsertConfiguredMailbox(ctx, cfg, mailboxes); err != nil {
			return fmt.Errorf("failed to save configured mailbox: %w", err)
		}
	}

	enabled, err := mailboxes.GetMailboxes(ctx)
	if err != nil {
		return err
	}

	for _, mailbox := range enabled {
		if err := poller.AddMailbox(ctx, mailbox); err != nil {
			return fmt.Errorf("failed to add mailbox %s: %w", mailbox.ID, err)
		}
	}

	log.Infof("Successfully initialized %d mailboxes", len(enabled))
	return nil
}

func upsertConfiguredMailbox(ctx context.Context, cfg *config.RelayConfig, mailboxes interfaces.MailboxRepository) error {
	address := cfg.EmailAddress
	if address == "" {
		address = cfg.ImapUsername
	}

	mailbox, err := mailboxes.GetMailboxByAddress(ctx, address)
	if err != nil {
		return err
	}
	if mailbox == nil {
		mailbox = &models.Mailbox{EmailAddress: address, Enabled: true}
	}

	mailbox.ImapServer = cfg.ImapServer
	mailbox.ImapPort = cfg.ImapPort
	mailbox.ImapUsername = cfg.ImapUsername
	mailbox.ImapPassword = cfg.ImapPassword
	mailbox.ImapTLS = cfg.ImapTLS
	mailbox.Folders = cfg.ImapFolders

	return mailboxes.SaveMailbox(ctx, mailbox)
}
