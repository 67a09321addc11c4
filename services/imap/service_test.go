package imap

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/enum"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeMessage struct {
	from string
	raw  string
}

type fakeClient struct {
	uidValidity uint32
	uidNext     uint32
	messages    map[uint32]fakeMessage
	selectErr   error
	noopErr     error
}

func (f *fakeClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	status := imap.NewMailboxStatus(name, nil)
	status.ReadOnly = readOnly
	status.UidValidity = f.uidValidity
	status.UidNext = f.uidNext
	status.Messages = uint32(len(f.messages))
	return status, nil
}

// returns every UID so the caller's filtering is exercised
func (f *fakeClient) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	uids := make([]uint32, 0, len(f.messages))
	for uid := range f.messages {
		uids = append(uids, uid)
	}
	return uids, nil
}

func (f *fakeClient) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	for uid, m := range f.messages {
		if !seqset.Contains(uid) {
			continue
		}
		msg := imap.NewMessage(uid, items)
		msg.Uid = uid
		msg.Envelope = &imap.Envelope{}
		if m.from != "" {
			mailbox, host, _ := strings.Cut(m.from, "@")
			msg.Envelope.From = []*imap.Address{{MailboxName: mailbox, HostName: host}}
		}
		msg.Body = map[*imap.BodySectionName]imap.Literal{
			{}: bytes.NewBufferString(m.raw),
		}
		ch <- msg
	}
	return nil
}

func (f *fakeClient) Noop() error   { return f.noopErr }
func (f *fakeClient) Logout() error { return nil }

type fakeSyncRepository struct {
	mu     sync.Mutex
	states map[string]models.RelaySyncState
}

func newFakeSyncRepository() *fakeSyncRepository {
	return &fakeSyncRepository{states: make(map[string]models.RelaySyncState)}
}

func (r *fakeSyncRepository) GetSyncState(ctx context.Context, mailboxID, folderName string) (*models.RelaySyncState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[mailboxID+"/"+folderName]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (r *fakeSyncRepository) SaveSyncState(ctx context.Context, state *models.RelaySyncState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	state.LastSync = time.Now()
	r.states[state.MailboxID+"/"+state.FolderName] = *state
	return nil
}

func (r *fakeSyncRepository) GetMailboxSyncStates(ctx context.Context, mailboxID string) (map[string]uint32, error) {
	return nil, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*dto.EmailReceived
	failOn    uint32
}

func (p *fakePublisher) PublishReceiveEmailEvent(ctx context.Context, message *dto.EmailReceived) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if message.ImapUID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, message)
	return nil
}

func (p *fakePublisher) PublishFanoutEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) error {
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) uids() []uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	uids := make([]uint32, 0, len(p.published))
	for _, m := range p.published {
		uids = append(uids, m.ImapUID)
	}
	return uids
}

type fakeMailboxRepository struct {
	mu       sync.Mutex
	statuses map[string]string
}

func (r *fakeMailboxRepository) GetMailboxes(ctx context.Context) ([]*models.Mailbox, error) {
	return nil, nil
}

func (r *fakeMailboxRepository) GetMailbox(ctx context.Context, id string) (*models.Mailbox, error) {
	return nil, nil
}

func (r *fakeMailboxRepository) GetMailboxByAddress(ctx context.Context, emailAddress string) (*models.Mailbox, error) {
	return nil, nil
}

func (r *fakeMailboxRepository) SaveMailbox(ctx context.Context, mailbox *models.Mailbox) error {
	return nil
}

func (r *fakeMailboxRepository) UpdateSyncStatus(ctx context.Context, id, status, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = status
	return nil
}

func (r *fakeMailboxRepository) DeleteMailbox(ctx context.Context, id string) error {
	return nil
}

type harness struct {
	service   *IMAPService
	client    *fakeClient
	syncRepo  *fakeSyncRepository
	publisher *fakePublisher
	mailboxes *fakeMailboxRepository
	mailbox   *models.Mailbox
	dials     int
	dialErr   error
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		client: &fakeClient{
			uidValidity: 7,
			uidNext:     11,
			messages:    make(map[uint32]fakeMessage),
		},
		syncRepo:  newFakeSyncRepository(),
		publisher: &fakePublisher{},
		mailboxes: &fakeMailboxRepository{statuses: make(map[string]string)},
		mailbox: &models.Mailbox{
			ID:      "mbox_relay",
			Folders: []string{"INBOX"},
		},
	}
	h.service = NewIMAPService(getLogger(), h.mailboxes, h.syncRepo, h.publisher)
	h.service.dial = func(ctx context.Context, mailbox *models.Mailbox) (mailClient, error) {
		h.dials++
		if h.dialErr != nil {
			return nil, h.dialErr
		}
		return h.client, nil
	}
	require.NoError(t, h.service.AddMailbox(context.Background(), h.mailbox))
	return h
}

func (h *harness) seedState(lastUID uint32) {
	_ = h.syncRepo.SaveSyncState(context.Background(), &models.RelaySyncState{
		MailboxID:   h.mailbox.ID,
		FolderName:  "INBOX",
		UIDValidity: h.client.uidValidity,
		LastUID:     lastUID,
	})
}

func (h *harness) lastUID(t *testing.T) uint32 {
	state, err := h.syncRepo.GetSyncState(context.Background(), h.mailbox.ID, "INBOX")
	require.NoError(t, err)
	require.NotNil(t, state)
	return state.LastUID
}

func TestPollAll_FirstSyncStartsAtEndOfFolder(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.client.messages[9] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}
	h.client.messages[10] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}

	// Act
	h.service.PollAll(context.Background())

	// Assert
	assert.Empty(t, h.publisher.uids())
	assert.Equal(t, uint32(10), h.lastUID(t))
	assert.Equal(t, enum.ConnectionActive.String(), h.mailboxes.statuses[h.mailbox.ID])
	assert.True(t, h.service.Status()[h.mailbox.ID].Connected)
}

func TestPollAll_PublishesNewMessagesInUIDOrder(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.seedState(10)
	h.client.messages[9] = fakeMessage{from: "alice@example.com", raw: "old"}
	h.client.messages[13] = fakeMessage{from: "alice@example.com", raw: "Subject: transfer bob.near 1\r\n\r\n"}
	h.client.messages[11] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}
	h.client.messages[12] = fakeMessage{from: "alice@example.com", raw: "Subject: add_key ed25519:abc\r\n\r\n"}

	// Act
	h.service.PollAll(context.Background())

	// Assert
	assert.Equal(t, []uint32{11, 12, 13}, h.publisher.uids())
	assert.Equal(t, uint32(13), h.lastUID(t))
	first := h.publisher.published[0]
	assert.Equal(t, enum.EmailImportIMAP, first.Source)
	assert.Equal(t, "INBOX", first.Folder)
	assert.Equal(t, h.mailbox.ID, first.MailboxID)
	assert.Equal(t, []byte("Subject: init\r\n\r\n"), first.Raw)

	stats := h.service.Status()[h.mailbox.ID].Folders["INBOX"]
	assert.Equal(t, uint32(13), stats.LastSeen)
	assert.Equal(t, uint32(4), stats.Total)
}

func TestPollAll_SkippedMessagesAdvanceTheMark(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.seedState(10)
	h.client.messages[11] = fakeMessage{raw: "Subject: init\r\n\r\n"}
	h.client.messages[12] = fakeMessage{from: "alice@example.com", raw: ""}
	h.client.messages[13] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}

	// Act
	h.service.PollAll(context.Background())

	// Assert
	assert.Equal(t, []uint32{13}, h.publisher.uids())
	assert.Equal(t, uint32(13), h.lastUID(t))
}

func TestPollAll_PublishFailureHoldsTheMark(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.seedState(10)
	h.publisher.failOn = 12
	h.client.messages[11] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}
	h.client.messages[12] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}
	h.client.messages[13] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}

	// Act
	h.service.PollAll(context.Background())

	// Assert
	assert.Equal(t, []uint32{11}, h.publisher.uids())
	assert.Equal(t, uint32(11), h.lastUID(t))
	status := h.service.Status()[h.mailbox.ID]
	assert.True(t, status.Connected)
	assert.Contains(t, status.LastError, "broker unavailable")

	// Act: broker recovers, next cycle resumes at 12
	h.publisher.failOn = 0
	h.service.PollAll(context.Background())

	// Assert
	assert.Equal(t, []uint32{11, 12, 13}, h.publisher.uids())
	assert.Equal(t, uint32(13), h.lastUID(t))
}

func TestPollAll_UIDValidityChangeRestartsAtEnd(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.seedState(10)
	h.client.uidValidity = 8
	h.client.uidNext = 4
	h.client.messages[1] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}
	h.client.messages[3] = fakeMessage{from: "alice@example.com", raw: "Subject: init\r\n\r\n"}

	// Act
	h.service.PollAll(context.Background())

	// Assert
	assert.Empty(t, h.publisher.uids())
	state, err := h.syncRepo.GetSyncState(context.Background(), h.mailbox.ID, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), state.LastUID)
	assert.Equal(t, uint32(8), state.UIDValidity)
}

func TestPollAll_DialFailureBacksOff(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.dialErr = errors.New("connection refused")

	// Act
	h.service.PollAll(context.Background())
	h.service.PollAll(context.Background())

	// Assert
	assert.Equal(t, 1, h.dials)
	status := h.service.Status()[h.mailbox.ID]
	assert.False(t, status.Connected)
	assert.Equal(t, "connection refused", status.LastError)
	assert.Equal(t, enum.ConnectionNotActive.String(), h.mailboxes.statuses[h.mailbox.ID])
}

func TestPollAll_BrokenConnectionIsReplaced(t *testing.T) {
	// Arrange
	h := newHarness(t)
	h.seedState(10)
	h.service.PollAll(context.Background())
	require.Equal(t, 1, h.dials)

	// Act
	h.client.noopErr = errors.New("connection reset")
	h.service.PollAll(context.Background())

	// Assert
	assert.Equal(t, 2, h.dials)
}

func TestAddMailbox_Validation(t *testing.T) {
	h := newHarness(t)

	err := h.service.AddMailbox(context.Background(), h.mailbox)
	assert.ErrorContains(t, err, "already exists")

	err = h.service.AddMailbox(context.Background(), &models.Mailbox{ID: "mbox_empty"})
	assert.ErrorContains(t, err, "no folders")

	err = h.service.AddMailbox(context.Background(), nil)
	assert.Error(t, err)

	require.NoError(t, h.service.RemoveMailbox(context.Background(), h.mailbox.ID))
	assert.NotContains(t, h.service.Status(), h.mailbox.ID)
}
