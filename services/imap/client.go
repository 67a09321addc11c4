package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

// mailClient is the subset of the go-imap client the poller uses.
type mailClient interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Noop() error
	Logout() error
}

type dialFunc func(ctx context.Context, mailbox *models.Mailbox) (mailClient, error)

// connectMailbox dials and logs in to the mailbox's IMAP server
func (s *IMAPService) connectMailbox(ctx context.Context, mailbox *models.Mailbox) (mailClient, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.connectMailbox")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)
	span.SetTag("server", mailbox.ImapServer)
	span.SetTag("port", mailbox.ImapPort)
	span.SetTag("tls", mailbox.ImapTLS)

	serverAddr := fmt.Sprintf("%s:%d", mailbox.ImapServer, mailbox.ImapPort)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if mailbox.ImapTLS {
		tlsConfig := &tls.Config{
			ServerName: mailbox.ImapServer,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	c.Timeout = 30 * time.Second

	caps, err := c.Capability()
	if err != nil {
		_ = c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))

	loginSpan := opentracing.StartSpan(
		"IMAPService.login",
		opentracing.ChildOf(span.Context()),
	)
	loginSpan.SetTag("username", mailbox.ImapUsername)

	err = c.Login(mailbox.ImapUsername, mailbox.ImapPassword)
	if err != nil {
		_ = c.Logout()
		tracing.TraceErr(loginSpan, err)
		loginSpan.Finish()
		return nil, fmt.Errorf("failed to login as %s: %w", mailbox.ImapUsername, err)
	}
	loginSpan.Finish()

	// a poll cycle must not hang the cron job on a dead socket
	c.Timeout = 2 * time.Minute

	s.log.Infof("[%s] Connected and logged in to %s", mailbox.ID, serverAddr)
	return c, nil
}

// getClient returns the cached connection if it still answers NOOP, otherwise dials a new one
func (s *IMAPService) getClient(ctx context.Context, mailbox *models.Mailbox) (mailClient, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.getClient")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, mailbox.ID)

	s.clientsMutex.RLock()
	c, exists := s.clients[mailbox.ID]
	s.clientsMutex.RUnlock()

	if exists {
		err := c.Noop()
		if err == nil {
			return c, nil
		}
		s.log.Warnf("[%s] Existing connection is broken: %v", mailbox.ID, err)
		s.disconnectClient(mailbox.ID)
	}

	c, err := s.dial(ctx, mailbox)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.clientsMutex.Lock()
	s.clients[mailbox.ID] = c
	s.clientsMutex.Unlock()

	return c, nil
}

// disconnectClient logs out with a bounded wait and forgets the connection
func (s *IMAPService) disconnectClient(mailboxID string) {
	s.clientsMutex.Lock()
	c, exists := s.clients[mailboxID]
	delete(s.clients, mailboxID)
	s.clientsMutex.Unlock()

	if !exists || c == nil {
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Logout()
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warnf("[%s] Error during logout: %v", mailboxID, err)
		}
	case <-time.After(5 * time.Second):
		s.log.Warnf("[%s] Logout timed out", mailboxID)
	}
}

func (s *IMAPService) disconnectAllClients() {
	s.clientsMutex.RLock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.clientsMutex.RUnlock()

	for _, id := range ids {
		s.disconnectClient(id)
	}
}
