package enum

type CommandKind string

const (
	CommandInit      CommandKind = "init"
	CommandAddKey    CommandKind = "add_key"
	CommandDeleteKey CommandKind = "delete_key"
	CommandTransfer  CommandKind = "transfer"
)

func (t CommandKind) String() string {
	return string(t)
}
