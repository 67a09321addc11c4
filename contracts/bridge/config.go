package bridge

import (
	"github.com/customeros/mailbridge/contracts/actuator"
	"github.com/customeros/mailbridge/internal/ledger"
)

// CodeID is the code id the bridge program is deployed under.
const CodeID = "bridge"

// Config is fixed when the bridge is deployed; the bridge never writes to it.
type Config struct {
	// ActuatorCodeID names the program deployed to every new identity account.
	ActuatorCodeID string
	// MinReserve funds a newly created identity account.
	MinReserve ledger.Balance
	// InitGas is the static gas for the actuator constructor call.
	InitGas ledger.Gas
	// CallGas and CallWeight budget add_key and transfer instructions. A non-zero weight
	// lets the instruction absorb whatever prepaid gas this invocation leaves unused.
	CallGas    ledger.Gas
	CallWeight ledger.GasWeight
}

func DefaultConfig() Config {
	reserve, _ := ledger.ParseBalance("4200000000000000000000000")
	return Config{
		ActuatorCodeID: actuator.CodeID,
		MinReserve:     reserve,
		InitGas:        200 * ledger.TGas,
		CallGas:        200 * ledger.TGas,
		CallWeight:     1,
	}
}
