package mailauth

import (
	"bytes"
	"net/mail"
	"strings"

	"github.com/emersion/go-msgauth/dkim"
	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

// KeyLookup resolves "<selector>._domainkey.<domain>" to DKIM key records.
type KeyLookup interface {
	LookupTXT(name string) ([]string, error)
}

type VerifiedEmail struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Domain  string `json:"domain"`
}

// Authenticator verifies raw mail against a curated key-ring. It never touches DNS.
type Authenticator struct {
	keys KeyLookup
}

func NewAuthenticator(keys KeyLookup) *Authenticator {
	return &Authenticator{keys: keys}
}

// Verify returns the single sender and raw subject of a DKIM-authenticated message.
func (a *Authenticator) Verify(raw []byte) (*VerifiedEmail, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.Wrap(mailbridge_errors.ErrMalformedEmail, "empty message")
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(mailbridge_errors.ErrMalformedEmail, err.Error())
	}

	verifications, err := a.verifySignatures(raw)
	if err != nil {
		return nil, err
	}

	sender, err := singleSender(env)
	if err != nil {
		return nil, err
	}

	subjects := env.GetHeaderValues("Subject")
	switch len(subjects) {
	case 0:
		return nil, errors.Wrap(mailbridge_errors.ErrMalformedEmail, "missing subject")
	case 1:
	default:
		return nil, errors.Wrapf(mailbridge_errors.ErrMalformedEmail, "%d subject headers", len(subjects))
	}

	senderDomain := strings.ToLower(sender[strings.LastIndex(sender, "@")+1:])
	signingDomain, err := alignedDomain(senderDomain, verifications)
	if err != nil {
		return nil, err
	}

	return &VerifiedEmail{
		Sender:  sender,
		Subject: env.GetHeader("Subject"),
		Domain:  signingDomain,
	}, nil
}

// verifySignatures passes only when at least one signature exists and every one verifies.
func (a *Authenticator) verifySignatures(raw []byte) ([]*dkim.Verification, error) {
	verifications, err := dkim.VerifyWithOptions(bytes.NewReader(raw), &dkim.VerifyOptions{
		LookupTXT: a.keys.LookupTXT,
	})
	if err != nil {
		return nil, errors.Wrap(mailbridge_errors.ErrSignatureVerificationFailed, err.Error())
	}
	if len(verifications) == 0 {
		return nil, errors.Wrap(mailbridge_errors.ErrSignatureVerificationFailed, "no dkim signature")
	}

	for _, v := range verifications {
		if v.Err != nil {
			return nil, errors.Wrapf(mailbridge_errors.ErrSignatureVerificationFailed, "d=%s: %v", v.Domain, v.Err)
		}
	}
	return verifications, nil
}

func singleSender(env *enmime.Envelope) (string, error) {
	if len(env.GetHeaderValues("From")) > 1 {
		return "", errors.Wrap(mailbridge_errors.ErrMultipleSenders, "multiple from headers")
	}

	addresses, err := env.AddressList("From")
	if err != nil {
		if errors.Is(err, mail.ErrHeaderNotPresent) {
			return "", errors.Wrap(mailbridge_errors.ErrMalformedEmail, "missing from header")
		}
		return "", errors.Wrap(mailbridge_errors.ErrMalformedEmail, err.Error())
	}

	switch len(addresses) {
	case 0:
		return "", errors.Wrap(mailbridge_errors.ErrMalformedEmail, "no from address")
	case 1:
		if !strings.Contains(addresses[0].Address, "@") {
			return "", errors.Wrapf(mailbridge_errors.ErrMalformedEmail, "from address %q", addresses[0].Address)
		}
		return addresses[0].Address, nil
	default:
		return "", errors.Wrapf(mailbridge_errors.ErrMultipleSenders, "%d from addresses", len(addresses))
	}
}

// alignedDomain returns the d= domain of a signature that covers the sender domain
// and signs the Subject header, which carries the command.
func alignedDomain(senderDomain string, verifications []*dkim.Verification) (string, error) {
	var aligned []string
	for _, v := range verifications {
		d := strings.ToLower(v.Domain)
		if senderDomain != d && !strings.HasSuffix(senderDomain, "."+d) {
			continue
		}
		if signsHeader(v, "Subject") {
			return d, nil
		}
		aligned = append(aligned, d)
	}
	if len(aligned) > 0 {
		return "", errors.Wrapf(mailbridge_errors.ErrSignatureVerificationFailed,
			"signatures %v do not cover the subject", aligned)
	}
	return "", errors.Wrapf(mailbridge_errors.ErrSignatureVerificationFailed,
		"from domain %s not covered by any signature", senderDomain)
}

func signsHeader(v *dkim.Verification, name string) bool {
	for _, k := range v.HeaderKeys {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return true
		}
	}
	return false
}
