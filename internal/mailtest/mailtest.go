// Package mailtest produces DKIM-signed messages backed by a throwaway key-ring.
package mailtest

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/emersion/go-msgauth/dkim"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/internal/keyring"
)

const (
	Selector = "20210112"
	Domain   = "gmail.com"
)

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
)

func signingKey() *rsa.PrivateKey {
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		key = k
	})
	return key
}

// Keyring returns a key-ring holding the signing key under Selector/Domain.
func Keyring(t testing.TB) *keyring.Keyring {
	der, err := x509.MarshalPKIXPublicKey(&signingKey().PublicKey)
	require.NoError(t, err)

	k, err := keyring.New(keyring.Entry{
		Selector: Selector,
		Domain:   Domain,
		Record:   "v=DKIM1; k=rsa; p=" + base64.StdEncoding.EncodeToString(der),
	})
	require.NoError(t, err)
	return k
}

// Message returns a DKIM-signed message from sender with the given subject.
func Message(t testing.TB, sender, subject string) []byte {
	return MessageSigning(t, sender, subject, nil)
}

// MessageSigning is Message with only headerKeys signed. A nil headerKeys signs every header.
func MessageSigning(t testing.TB, sender, subject string, headerKeys []string) []byte {
	msg := strings.Join([]string{
		"From: " + sender,
		"To: bridge@near.org",
		"Subject: " + subject,
		"Date: Mon, 12 Jul 2021 10:00:00 +0000",
		fmt.Sprintf("Message-ID: <%d@%s>", len(subject), Domain),
		"",
		"sent from my phone",
		"",
	}, "\r\n")

	var out bytes.Buffer
	err := dkim.Sign(&out, strings.NewReader(msg), &dkim.SignOptions{
		Domain:     Domain,
		Selector:   Selector,
		Signer:     signingKey(),
		HeaderKeys: headerKeys,
	})
	require.NoError(t, err)
	return out.Bytes()
}
