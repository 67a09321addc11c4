package relay

import (
	"bytes"
	"context"
	"sync"

	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/mailbridge/contracts/bridge"
	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/interfaces"
	"github.com/customeros/mailbridge/internal/enum"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/models"
	"github.com/customeros/mailbridge/internal/tracing"
)

type Config struct {
	SignerID   ledger.AccountID
	SecretKey  ledger.SecretKey
	ReceiverID ledger.AccountID
	TxGas      ledger.Gas
}

// Submitter hands raw email to the bridge as receive_email transactions signed by the
// relay account. Submissions are serialized so nonces advance by exactly one.
type Submitter struct {
	cfg         Config
	log         logger.Logger
	chain       interfaces.ChainClient
	submissions interfaces.RelaySubmissionRepository

	mu     sync.Mutex
	nonce  uint64
	synced bool
}

var _ interfaces.Submitter = (*Submitter)(nil)

func NewSubmitter(cfg Config, log logger.Logger, chain interfaces.ChainClient, submissions interfaces.RelaySubmissionRepository) *Submitter {
	return &Submitter{
		cfg:         cfg,
		log:         log,
		chain:       chain,
		submissions: submissions,
	}
}

func (s *Submitter) PublicKey() ledger.PublicKey {
	return s.cfg.SecretKey.PublicKey()
}

// SubmitEmail signs and submits one receive_email transaction. A nonce rejected by the
// host triggers a resync and one fresh submission; nothing else is retried.
func (s *Submitter) SubmitEmail(ctx context.Context, email *dto.EmailReceived) (*dto.SubmitEmailResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Submitter.SubmitEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagMailbox(span, email.MailboxID)

	submission := &models.RelaySubmission{
		Source:     email.Source,
		MailboxID:  email.MailboxID,
		FolderName: email.Folder,
		ImapUID:    email.ImapUID,
		Sender:     senderOf(email.Raw),
		ArchiveKey: email.ArchiveKey,
	}

	if len(bytes.TrimSpace(email.Raw)) == 0 {
		err := errors.Wrap(mailbridge_errors.ErrMalformedEmail, "empty message")
		s.record(ctx, submission, enum.SubmissionSkipped, err)
		return nil, err
	}

	args, err := bridge.EncodeReceiveEmailArgs(email.Raw)
	if err != nil {
		tracing.TraceErr(span, err)
		s.record(ctx, submission, enum.SubmissionRejected, err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash, nonce, err := s.submit(ctx, args)
	if errors.Is(err, mailbridge_errors.ErrInvalidNonce) {
		s.log.Warnf("Nonce %d rejected, resyncing: %v", nonce, err)
		s.synced = false
		hash, nonce, err = s.submit(ctx, args)
	}
	submission.Nonce = nonce
	if err != nil {
		tracing.TraceErr(span, err)
		s.record(ctx, submission, enum.SubmissionRejected, err)
		return nil, err
	}

	tracing.TagTxHash(span, hash)
	submission.TxHash = hash
	s.record(ctx, submission, enum.SubmissionSubmitted, nil)
	s.log.Infof("Email from %s submitted as %s with nonce %d", submission.Sender, hash, nonce)

	return &dto.SubmitEmailResponse{
		Status: enum.SubmissionSubmitted.String(),
		TxHash: hash,
		Nonce:  nonce,
	}, nil
}

// submit sends one transaction with the next nonce. Must be called with mu held.
func (s *Submitter) submit(ctx context.Context, args []byte) (string, uint64, error) {
	if !s.synced {
		if err := s.resync(ctx); err != nil {
			return "", 0, err
		}
	}

	nonce := s.nonce + 1
	stx, err := ledger.Transaction{
		SignerID:   s.cfg.SignerID,
		PublicKey:  s.cfg.SecretKey.PublicKey(),
		Nonce:      nonce,
		ReceiverID: s.cfg.ReceiverID,
		Actions: ledger.Actions{ledger.FunctionCall{
			MethodName: bridge.MethodReceiveEmail,
			Args:       args,
			Gas:        s.cfg.TxGas,
		}},
	}.Sign(s.cfg.SecretKey)
	if err != nil {
		return "", nonce, err
	}

	hash, err := s.chain.Submit(ctx, stx)
	if err != nil {
		return "", nonce, err
	}
	s.nonce = nonce
	return hash, nonce, nil
}

func (s *Submitter) resync(ctx context.Context) error {
	view, err := s.chain.ViewAccessKey(ctx, s.cfg.SignerID, s.cfg.SecretKey.PublicKey())
	if err != nil {
		return errors.Wrap(err, "view relay access key")
	}
	s.nonce = view.Nonce
	s.synced = true
	return nil
}

func (s *Submitter) record(ctx context.Context, submission *models.RelaySubmission, status enum.SubmissionStatus, cause error) {
	submission.Status = status
	if cause != nil {
		submission.Error = cause.Error()
		submission.ErrorKind = mailbridge_errors.Kind(cause)
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		s.log.Errorf("Failed to record relay submission: %v", err)
	}
}

func senderOf(raw []byte) string {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	addresses, err := env.AddressList("From")
	if err != nil || len(addresses) == 0 {
		return ""
	}
	return addresses[0].Address
}
