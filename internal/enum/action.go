package enum

type ActionKind string

const (
	ActionCreateAccount    ActionKind = "CreateAccount"
	ActionTransfer         ActionKind = "Transfer"
	ActionDeployContract   ActionKind = "DeployContract"
	ActionFunctionCall     ActionKind = "FunctionCall"
	ActionAddFullAccessKey ActionKind = "AddKey"
	ActionDeleteKey        ActionKind = "DeleteKey"
)

func (t ActionKind) String() string {
	return string(t)
}
