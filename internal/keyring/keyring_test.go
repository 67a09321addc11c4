package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

const gmailRecord = "v=DKIM1; k=rsa; p=MIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAq8JxVBMLHZRj1WvIMSHApRY3DraE/EiFiR6IMAlDq9GAnrVy0tDQyBND1G8+1fy5RwssQ9DgfNe7rImwxabWfWxJ1LSmo/DzEdOHOJNQiP/nw7MdmGu+R9hEvBeGRQ Amn1jkO46KIw/p2lGvmPSe3+AVD+XyaXZ4vJGTZKFUCnoctAVUyHjSDT7KnEsaiND2rVsDvyisJUAH+EyRfmHSBwfJVHAdJ9oD8cn9NjIun/EHLSIwhCxXmLJlaJeNAFtcGeD2aRGbHaS7M6aTFP+qk4f2ucRx31cyCxbu50CDVfU+d4JkIDNBFDiV+MIpaDFXIf11bGoS08oBBQiyPXgX0wIDAQAB"

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "keyring.yaml", `
keys:
  - selector: "20210112"
    domain: Gmail.com
    record: "`+gmailRecord+`"
`)

	k, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, k.Len())

	records, err := k.LookupTXT("20210112._domainkey.gmail.com")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0], "p=MIIBIjAN")
	assert.NotContains(t, records[0], "GRQ Amn", "whitespace inside p= is removed")

	_, err = k.LookupTXT("other._domainkey.gmail.com")
	assert.ErrorIs(t, err, mailbridge_errors.ErrKeyNotFound)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "keyring.toml", `
[[keys]]
selector = "google"
domain = "near.org"
record = "v=DKIM1; k=rsa; p=AAAA"

[[keys]]
selector = "20210112"
domain = "gmail.com"
record = "v=DKIM1; k=rsa; p=BBBB"
`)

	k, err := Load(path)
	require.NoError(t, err)

	entries := k.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "gmail.com", entries[0].Domain)
	assert.Equal(t, "near.org", entries[1].Domain)
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{"missing selector", Entry{Domain: "gmail.com", Record: "v=DKIM1; p=AAAA"}},
		{"missing domain", Entry{Selector: "s", Record: "v=DKIM1; p=AAAA"}},
		{"missing key", Entry{Selector: "s", Domain: "gmail.com", Record: "v=DKIM1; k=rsa"}},
		{"empty key", Entry{Selector: "s", Domain: "gmail.com", Record: "v=DKIM1; p="}},
		{"bad version", Entry{Selector: "s", Domain: "gmail.com", Record: "v=DKIM2; p=AAAA"}},
		{"bad key type", Entry{Selector: "s", Domain: "gmail.com", Record: "k=dsa; p=AAAA"}},
		{"malformed tag", Entry{Selector: "s", Domain: "gmail.com", Record: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entry)
			assert.Error(t, err)
		})
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	e := Entry{Selector: "s", Domain: "gmail.com", Record: "p=AAAA"}
	_, err := New(e, Entry{Selector: "S", Domain: "GMAIL.com", Record: "p=BBBB"})
	assert.ErrorContains(t, err, "duplicate")

	_, err = Load(writeFile(t, "empty.yaml", "keys: []\n"))
	assert.Error(t, err)
}
