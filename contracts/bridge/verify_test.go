package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/mailbridge/internal/command"
	"github.com/customeros/mailbridge/internal/mailtest"
)

func mustParse(t *testing.T, subject string) command.Command {
	cmd, err := command.Parse(subject)
	require.NoError(t, err)
	return cmd
}

func TestVerify(t *testing.T) {
	b := newBridge(t)

	tests := []struct {
		name      string
		raw       []byte
		valid     bool
		command   string
		arguments interface{}
		errorKind string
	}{
		{
			name:    "init",
			raw:     mailtest.Message(t, sender, "init"),
			valid:   true,
			command: "init",
		},
		{
			name:      "add key",
			raw:       mailtest.Message(t, sender, "add_key "+testKey),
			valid:     true,
			command:   "add_key",
			arguments: command.AddKey{Key: testKey},
		},
		{
			name:      "transfer",
			raw:       mailtest.Message(t, sender, "transfer foobar.near 1.5"),
			valid:     true,
			command:   "transfer",
			arguments: mustParse(t, "transfer foobar.near 1.5"),
		},
		{
			name:      "unknown command",
			raw:       mailtest.Message(t, sender, "withdraw"),
			errorKind: "UnrecognizedCommand",
		},
		{
			name:      "unsigned",
			raw:       []byte("From: " + sender + "\r\nSubject: init\r\n\r\nbody\r\n"),
			errorKind: "SignatureVerificationFailed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			got := b.Verify(tt.raw, bridgeAccount)

			// Assert
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.errorKind, got.ErrorKind)
			if !tt.valid {
				assert.NotEmpty(t, got.Error)
				assert.Empty(t, got.Account)
				return
			}
			assert.Equal(t, sender, got.Sender)
			assert.Equal(t, "gmail.com", got.Domain)
			assert.Equal(t, "example_near_gmail_com", got.Identity)
			assert.Equal(t, identityAcct.String(), got.Account)
			assert.Equal(t, tt.command, got.Command)
			if tt.arguments == nil {
				assert.Nil(t, got.Arguments)
			} else {
				assert.Equal(t, tt.arguments, got.Arguments)
			}
		})
	}
}
