package enum

type EmailImportSource string

const (
	EmailImportIMAP EmailImportSource = "imap"
	EmailImportAPI  EmailImportSource = "api"
)

func (t EmailImportSource) String() string {
	return string(t)
}
