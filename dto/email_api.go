package dto

type SubmitEmailResponse struct {
	Status string `json:"status"`
	TxHash string `json:"txHash"`
	Nonce  uint64 `json:"nonce"`
}

type VerifyEmailResponse struct {
	Valid     bool        `json:"valid"`
	Sender    string      `json:"sender,omitempty"`
	Subject   string      `json:"subject,omitempty"`
	Domain    string      `json:"domain,omitempty"`
	Identity  string      `json:"identity,omitempty"`
	Account   string      `json:"account,omitempty"`
	Command   string      `json:"command,omitempty"`
	Arguments interface{} `json:"arguments,omitempty"`
	ErrorKind string      `json:"errorKind,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type KeyringEntry struct {
	Selector string `json:"selector"`
	Domain   string `json:"domain"`
}

type MailboxRequest struct {
	ImapServer   string   `json:"imapServer" binding:"required"`
	ImapPort     int      `json:"imapPort" binding:"required"`
	ImapUsername string   `json:"imapUsername" binding:"required"`
	ImapPassword string   `json:"imapPassword" binding:"required"`
	ImapTLS      *bool    `json:"imapTls"`
	Folders      []string `json:"folders"`
	EmailAddress string   `json:"emailAddress"`
}
