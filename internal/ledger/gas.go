package ledger

type Gas uint64

// GasWeight is the share of unused prepaid gas a function call receives on top of its
// static gas. Zero means the call gets exactly its static gas.
type GasWeight uint64

const TGas Gas = 1_000_000_000_000
