package dto

import (
	"github.com/customeros/mailbridge/internal/enum"
)

// EmailReceived carries one fetched message from the poller to the submitter.
type EmailReceived struct {
	Source    enum.EmailImportSource `json:"source"`
	MailboxID string                 `json:"mailboxId"`
	Folder    string                 `json:"folder"`
	ImapUID   uint32                 `json:"imapUid"`
	Raw       []byte                 `json:"raw"`
	// ArchiveKey is set once the raw message has been stored in object storage.
	ArchiveKey string `json:"archiveKey,omitempty"`
}
