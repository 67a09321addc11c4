package imap

import (
	"context"
	"io"
	"sort"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

// pollFolder hands every message above the folder's high-water mark to the publisher in
// ascending UID order. The mark advances only after the hand-off succeeds.
func (s *IMAPService) pollFolder(ctx context.Context, c mailClient, mailbox *models.Mailbox, folder string) (interfaces.FolderStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.pollFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)
	span.SetTag("folder", folder)

	var stats interfaces.FolderStats

	mbox, err := c.Select(folder, true)
	if err != nil {
		tracing.TraceErr(span, err)
		return stats, errors.Wrapf(err, "failed to select folder %s", folder)
	}
	stats.Total = mbox.Messages

	state, err := s.syncStates.GetSyncState(ctx, mailbox.ID, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return stats, err
	}

	if state == nil || state.UIDValidity != mbox.UidValidity {
		// never replay history: start from the current end of the folder
		state, err = s.startSyncState(ctx, c, mailbox.ID, folder, mbox)
		if err != nil {
			tracing.TraceErr(span, err)
			return stats, err
		}
		stats.LastSeen = state.LastUID
		stats.LastSync = state.LastSync
		return stats, nil
	}

	uids, err := s.searchNewUIDs(c, state.LastUID)
	if err != nil {
		tracing.TraceErr(span, err)
		return stats, err
	}
	span.LogFields(tracingLog.Int("new_messages", len(uids)))

	for _, uid := range uids {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		msg, err := fetchMessage(c, uid)
		if err != nil {
			tracing.TraceErr(span, err)
			return stats, err
		}

		if reason := skipReason(msg); reason != "" {
			s.log.Infof("[%s] Skipping %s/%d: %s", mailbox.ID, folder, uid, reason)
		} else {
			err = s.publisher.PublishReceiveEmailEvent(ctx, &dto.EmailReceived{
				Source:    enum.EmailImportIMAP,
				MailboxID: mailbox.ID,
				Folder:    folder,
				ImapUID:   uid,
				Raw:       msg.raw,
			})
			if err != nil {
				tracing.TraceErr(span, err)
				return stats, errors.Wrapf(err, "failed to publish %s/%d", folder, uid)
			}
		}

		state.LastUID = uid
		if err = s.syncStates.SaveSyncState(ctx, state); err != nil {
			tracing.TraceErr(span, err)
			return stats, err
		}
	}

	stats.LastSeen = state.LastUID
	stats.LastSync = state.LastSync
	return stats, nil
}

func (s *IMAPService) startSyncState(ctx context.Context, c mailClient, mailboxID, folder string, mbox *imap.MailboxStatus) (*models.RelaySyncState, error) {
	var lastUID uint32
	if mbox.UidNext > 0 {
		lastUID = mbox.UidNext - 1
	} else if mbox.Messages > 0 {
		uids, err := s.searchNewUIDs(c, 0)
		if err != nil {
			return nil, err
		}
		if len(uids) > 0 {
			lastUID = uids[len(uids)-1]
		}
	}

	state := &models.RelaySyncState{
		MailboxID:   mailboxID,
		FolderName:  folder,
		UIDValidity: mbox.UidValidity,
		LastUID:     lastUID,
	}
	if err := s.syncStates.SaveSyncState(ctx, state); err != nil {
		return nil, err
	}

	s.log.Infof("[%s] Sync of %s starts after UID %d (UIDVALIDITY %d)", mailboxID, folder, lastUID, mbox.UidValidity)
	return state, nil
}

// searchNewUIDs returns UIDs strictly greater than lastUID in ascending order.
// "N:*" matches the highest UID even when it is below N, hence the filter.
func (s *IMAPService) searchNewUIDs(c mailClient, lastUID uint32) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(lastUID+1, 0)

	found, err := c.UidSearch(criteria)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search new messages")
	}

	uids := make([]uint32, 0, len(found))
	for _, uid := range found {
		if uid > lastUID {
			uids = append(uids, uid)
		}
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

type fetchedMessage struct {
	uid  uint32
	from string
	raw  []byte
}

// fetchMessage reads the whole message without setting \Seen
func fetchMessage(c mailClient, uid uint32) (*fetchedMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var result *fetchedMessage
	var readErr error
	// drain the channel so the fetch goroutine can finish
	for msg := range messages {
		if msg == nil || result != nil || readErr != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			readErr = errors.Wrapf(err, "failed to read message %d", uid)
			continue
		}
		result = &fetchedMessage{uid: uid, raw: raw}
		if msg.Envelope != nil && len(msg.Envelope.From) > 0 {
			result.from = msg.Envelope.From[0].Address()
		}
	}

	if err := <-done; err != nil {
		return nil, errors.Wrapf(err, "failed to fetch message %d", uid)
	}
	if readErr != nil {
		return nil, readErr
	}
	if result == nil {
		return nil, errors.Errorf("message %d has no body", uid)
	}
	return result, nil
}

// skipReason is non-empty for messages the bridge is certain to reject
func skipReason(msg *fetchedMessage) string {
	if len(msg.raw) == 0 {
		return "empty message"
	}
	if msg.from == "" {
		return "no From address"
	}
	if !mailvalidate.ValidateEmailSyntax(msg.from).IsValid {
		return "invalid From address " + msg.from
	}
	return ""
}
