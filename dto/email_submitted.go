package dto

import "github.com/customeros/mailbridge/internal/enum"

// EmailSubmitted is published on the fanout exchange once an email is on the ledger.
type EmailSubmitted struct {
	Source     enum.EmailImportSource `json:"source"`
	MailboxID  string                 `json:"mailboxId,omitempty"`
	Folder     string                 `json:"folder,omitempty"`
	ImapUID    uint32                 `json:"imapUid,omitempty"`
	ArchiveKey string                 `json:"archiveKey,omitempty"`
	TxHash     string                 `json:"txHash"`
	Nonce      uint64                 `json:"nonce"`
}
