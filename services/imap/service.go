package imap

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 2 * time.Minute
)

// IMAPService polls the configured mailboxes and hands new messages to the event publisher.
// Polling is driven externally (cron) through PollAll.
type IMAPService struct {
	log        logger.Logger
	mailboxes  interfaces.MailboxRepository
	syncStates interfaces.RelaySyncRepository
	publisher  interfaces.EventPublisher
	dial       dialFunc

	clients      map[string]mailClient
	configs      map[string]*models.Mailbox
	polling      map[string]*sync.Mutex
	backoffs     map[string]*backoffState
	clientsMutex sync.RWMutex

	statuses    map[string]interfaces.MailboxStatus
	statusMutex sync.RWMutex

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type backoffState struct {
	delay time.Duration
	next  time.Time
}

var _ interfaces.IMAPService = (*IMAPService)(nil)

func NewIMAPService(log logger.Logger, mailboxes interfaces.MailboxRepository, syncStates interfaces.RelaySyncRepository, publisher interfaces.EventPublisher) *IMAPService {
	s := &IMAPService{
		log:        log,
		mailboxes:  mailboxes,
		syncStates: syncStates,
		publisher:  publisher,
		clients:    make(map[string]mailClient),
		configs:    make(map[string]*models.Mailbox),
		polling:    make(map[string]*sync.Mutex),
		backoffs:   make(map[string]*backoffState),
		statuses:   make(map[string]interfaces.MailboxStatus),
	}
	s.dial = s.connectMailbox
	return s
}

// Start binds the service lifetime to ctx
func (s *IMAPService) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.clientsMutex.RLock()
	count := len(s.configs)
	s.clientsMutex.RUnlock()

	s.log.Infof("IMAP poller started with %d mailboxes", count)
	return nil
}

// Stop waits for in-flight polls and logs out of every mailbox
func (s *IMAPService) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All IMAP polls completed")
	case <-time.After(10 * time.Second):
		s.log.Warn("Timeout waiting for IMAP polls to complete")
	}

	s.disconnectAllClients()
	return nil
}

// Status returns a copy of the per-mailbox status
func (s *IMAPService) Status() map[string]interfaces.MailboxStatus {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	result := make(map[string]interfaces.MailboxStatus, len(s.statuses))
	for id, status := range s.statuses {
		folders := make(map[string]interfaces.FolderStats, len(status.Folders))
		for name, stats := range status.Folders {
			folders[name] = stats
		}
		status.Folders = folders
		result[id] = status
	}
	return result
}

func (s *IMAPService) AddMailbox(ctx context.Context, mailbox *models.Mailbox) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.AddMailbox")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if mailbox == nil {
		err := errors.New("mailbox is nil")
		tracing.TraceErr(span, err)
		return err
	}
	tracing.TagMailbox(span, mailbox.ID)

	if len(mailbox.Folders) == 0 {
		err := errors.New("mailbox has no folders to poll")
		tracing.TraceErr(span, err)
		return err
	}

	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()

	if _, exists := s.configs[mailbox.ID]; exists {
		err := errors.Errorf("mailbox with ID %s already exists", mailbox.ID)
		tracing.TraceErr(span, err)
		return err
	}

	s.configs[mailbox.ID] = mailbox
	s.polling[mailbox.ID] = &sync.Mutex{}
	s.updateStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {})

	return nil
}

func (s *IMAPService) RemoveMailbox(ctx context.Context, mailboxID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.RemoveMailbox")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailboxID)

	s.clientsMutex.Lock()
	delete(s.configs, mailboxID)
	delete(s.polling, mailboxID)
	delete(s.backoffs, mailboxID)
	s.clientsMutex.Unlock()

	s.disconnectClient(mailboxID)

	s.statusMutex.Lock()
	delete(s.statuses, mailboxID)
	s.statusMutex.Unlock()

	return nil
}

// PollAll runs one poll cycle over every mailbox, one goroutine per mailbox, and returns when all are done.
func (s *IMAPService) PollAll(ctx context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.PollAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if s.ctx != nil && s.ctx.Err() != nil {
		return
	}

	s.clientsMutex.RLock()
	mailboxes := make([]*models.Mailbox, 0, len(s.configs))
	for _, mailbox := range s.configs {
		mailboxes = append(mailboxes, mailbox)
	}
	s.clientsMutex.RUnlock()
	span.LogFields(tracingLog.Int("mailbox_count", len(mailboxes)))

	var cycle sync.WaitGroup
	for _, mailbox := range mailboxes {
		cycle.Add(1)
		s.wg.Add(1)
		go func(mailbox *models.Mailbox) {
			defer s.wg.Done()
			defer cycle.Done()
			defer tracing.RecoverAndLogToJaeger(s.log)
			s.pollMailbox(ctx, mailbox)
		}(mailbox)
	}
	cycle.Wait()
}

func (s *IMAPService) pollMailbox(ctx context.Context, mailbox *models.Mailbox) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.pollMailbox")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)

	s.clientsMutex.RLock()
	lock, registered := s.polling[mailbox.ID]
	backoff := s.backoffs[mailbox.ID]
	s.clientsMutex.RUnlock()

	if !registered {
		return
	}
	// previous cycle still running for this mailbox
	if !lock.TryLock() {
		span.LogFields(tracingLog.Bool("skipped.busy", true))
		return
	}
	defer lock.Unlock()

	if backoff != nil && time.Now().Before(backoff.next) {
		span.LogFields(tracingLog.Bool("skipped.backoff", true))
		return
	}

	c, err := s.getClient(ctx, mailbox)
	if err != nil {
		tracing.TraceErr(span, err)
		s.connectionFailed(ctx, mailbox.ID, err)
		return
	}

	var pollErr error
	for _, folder := range mailbox.Folders {
		if ctx.Err() != nil {
			return
		}
		stats, err := s.pollFolder(ctx, c, mailbox, folder)
		if err != nil {
			s.log.Errorf("[%s] Failed to poll folder %s: %v", mailbox.ID, folder, err)
			tracing.TraceErr(span, err)
			pollErr = err
			continue
		}
		s.updateStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
			status.Folders[folder] = stats
		})
	}

	if pollErr != nil && c.Noop() != nil {
		s.disconnectClient(mailbox.ID)
		s.connectionFailed(ctx, mailbox.ID, pollErr)
		return
	}

	s.clientsMutex.Lock()
	delete(s.backoffs, mailbox.ID)
	s.clientsMutex.Unlock()

	lastError := ""
	if pollErr != nil {
		lastError = pollErr.Error()
	}
	s.updateStatus(mailbox.ID, func(status *interfaces.MailboxStatus) {
		status.Connected = true
		status.LastError = lastError
		status.LastChecked = time.Now()
	})
	if err = s.mailboxes.UpdateSyncStatus(ctx, mailbox.ID, enum.ConnectionActive.String(), lastError); err != nil {
		tracing.TraceErr(span, err)
	}
}

// connectionFailed records the error and pushes the next attempt out by 1.5x, capped
func (s *IMAPService) connectionFailed(ctx context.Context, mailboxID string, cause error) {
	s.clientsMutex.Lock()
	backoff, ok := s.backoffs[mailboxID]
	if !ok {
		backoff = &backoffState{}
		s.backoffs[mailboxID] = backoff
	}
	if backoff.delay == 0 {
		backoff.delay = initialBackoff
	} else {
		backoff.delay = time.Duration(float64(backoff.delay) * 1.5)
		if backoff.delay > maxBackoff {
			backoff.delay = maxBackoff
		}
	}
	backoff.next = time.Now().Add(backoff.delay)
	delay := backoff.delay
	s.clientsMutex.Unlock()

	s.log.Warnf("[%s] Mailbox unavailable: %v, next attempt in %v", mailboxID, cause, delay)

	s.updateStatus(mailboxID, func(status *interfaces.MailboxStatus) {
		status.Connected = false
		status.LastError = cause.Error()
		status.LastChecked = time.Now()
	})
	if err := s.mailboxes.UpdateSyncStatus(ctx, mailboxID, enum.ConnectionNotActive.String(), cause.Error()); err != nil {
		s.log.Errorf("[%s] Failed to update sync status: %v", mailboxID, err)
	}
}

func (s *IMAPService) updateStatus(mailboxID string, update func(status *interfaces.MailboxStatus)) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	status := s.statuses[mailboxID]
	if status.Folders == nil {
		status.Folders = make(map[string]interfaces.FolderStats)
	}
	update(&status)
	s.statuses[mailboxID] = status
}
