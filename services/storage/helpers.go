package storage

import (
	"fmt"
	"net/url"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/utils"
)

const rawEmailContentType = "message/rfc822"

// ArchiveKey is raw/<mailbox>/<folder>/<uid>.eml for polled mail. Folder names may contain
// the IMAP hierarchy delimiter, so they are escaped into a single path segment.
func ArchiveKey(message *dto.EmailReceived) string {
	if message.Source == enum.EmailImportIMAP {
		return fmt.Sprintf("raw/%s/%s/%d.eml",
			url.PathEscape(message.MailboxID),
			url.PathEscape(message.Folder),
			message.ImapUID)
	}
	return fmt.Sprintf("raw/%s/%s.eml", message.Source, utils.GenerateID("eml"))
}
