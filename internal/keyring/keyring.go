package keyring

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
)

// Entry is one curated DKIM public key record.
type Entry struct {
	Selector string `yaml:"selector" toml:"selector" json:"selector"`
	Domain   string `yaml:"domain" toml:"domain" json:"domain"`
	Record   string `yaml:"record" toml:"record" json:"record"`
}

func (e Entry) Name() string {
	return RecordName(e.Selector, e.Domain)
}

type file struct {
	Keys []Entry `yaml:"keys" toml:"keys"`
}

// Keyring is the fixed mapping from <selector>._domainkey.<domain> to a DKIM key record.
// It is immutable after construction and replaces DNS for signature verification.
type Keyring struct {
	records map[string]Entry
}

func RecordName(selector, domain string) string {
	return strings.ToLower(strings.TrimSpace(selector)) + "._domainkey." + strings.ToLower(strings.TrimSpace(domain))
}

func New(entries ...Entry) (*Keyring, error) {
	k := &Keyring{records: make(map[string]Entry, len(entries))}
	for i, e := range entries {
		normalized, err := normalize(e)
		if err != nil {
			return nil, errors.Wrapf(err, "key[%d]", i)
		}
		name := normalized.Name()
		if _, exists := k.records[name]; exists {
			return nil, errors.Errorf("key[%d]: duplicate entry %s", i, name)
		}
		k.records[name] = normalized
	}
	return k, nil
}

// Load reads a key-ring file. The format is chosen by extension: .toml, otherwise YAML.
func Load(path string) (*Keyring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "keyring load failed (%s)", path)
	}

	var f file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "keyring parse failed (%s)", path)
	}
	if len(f.Keys) == 0 {
		return nil, errors.Errorf("keyring %s has no keys", path)
	}

	return New(f.Keys...)
}

// LookupTXT resolves a DKIM key query against the curated records only.
func (k *Keyring) LookupTXT(name string) ([]string, error) {
	entry, ok := k.records[strings.ToLower(strings.TrimSuffix(name, "."))]
	if !ok {
		return nil, errors.Wrapf(mailbridge_errors.ErrKeyNotFound, "no dkim key for %s", name)
	}
	return []string{entry.Record}, nil
}

// Entries lists the key-ring sorted by domain then selector.
func (k *Keyring) Entries() []Entry {
	out := make([]Entry, 0, len(k.records))
	for _, e := range k.records {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].Selector < out[j].Selector
	})
	return out
}

func (k *Keyring) Len() int {
	return len(k.records)
}

func normalize(e Entry) (Entry, error) {
	e.Selector = strings.ToLower(strings.TrimSpace(e.Selector))
	e.Domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(e.Domain), "."))
	if e.Selector == "" {
		return Entry{}, errors.New("missing selector")
	}
	if e.Domain == "" {
		return Entry{}, errors.New("missing domain")
	}

	tags := make([]string, 0, 4)
	seen := map[string]string{}
	for _, part := range strings.Split(e.Record, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, value, ok := strings.Cut(part, "=")
		if !ok {
			return Entry{}, errors.Errorf("malformed tag %q", part)
		}
		tag = strings.TrimSpace(tag)
		value = strings.TrimSpace(value)
		if tag == "p" {
			value = strings.Join(strings.Fields(value), "")
		}
		seen[tag] = value
		tags = append(tags, tag+"="+value)
	}

	if v, ok := seen["v"]; ok && v != "DKIM1" {
		return Entry{}, errors.Errorf("unsupported version %q", v)
	}
	if seen["p"] == "" {
		return Entry{}, errors.New("missing public key")
	}
	switch seen["k"] {
	case "", "rsa", "ed25519":
	default:
		return Entry{}, errors.Errorf("unsupported key type %q", seen["k"])
	}

	e.Record = strings.Join(tags, "; ")
	return e, nil
}
