package errors

import "github.com/pkg/errors"

var (
	// email authentication
	ErrMalformedEmail              = errors.New("malformed email")
	ErrSignatureVerificationFailed = errors.New("signature verification failed")
	ErrMultipleSenders             = errors.New("multiple senders")

	// command grammar
	ErrUnrecognizedCommand   = errors.New("unrecognized command")
	ErrInvalidKeyFormat      = errors.New("invalid key format")
	ErrInvalidTransferAmount = errors.New("invalid transfer amount")
	ErrInvalidAccountID      = errors.New("invalid account id")

	// identity mapping
	ErrUnsupportedCharacter = errors.New("unsupported character")

	// contracts
	ErrUnauthorizedCaller     = errors.New("unauthorized caller")
	ErrUnimplemented          = errors.New("unimplemented")
	ErrAlreadyInitialized     = errors.New("contract already initialized")
	ErrContractNotInitialized = errors.New("contract not initialized")
	ErrMethodNotFound         = errors.New("method not found")
	ErrInvalidArguments       = errors.New("invalid arguments")

	// ledger host
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidNonce        = errors.New("invalid nonce")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrGasExceeded         = errors.New("prepaid gas exceeded")
	ErrContractNotDeployed = errors.New("contract not deployed")
	ErrUnknownCode         = errors.New("unknown contract code")
	ErrActorNoPermission   = errors.New("actor has no permission")
	ErrKeyNotFound         = errors.New("key not found")
	ErrKeyExists           = errors.New("key already exists")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrMalformedEmail, "MalformedEmail"},
	{ErrSignatureVerificationFailed, "SignatureVerificationFailed"},
	{ErrMultipleSenders, "MultipleSenders"},
	{ErrUnrecognizedCommand, "UnrecognizedCommand"},
	{ErrInvalidKeyFormat, "InvalidKeyFormat"},
	{ErrInvalidTransferAmount, "InvalidTransferAmount"},
	{ErrInvalidAccountID, "InvalidAccountID"},
	{ErrUnsupportedCharacter, "UnsupportedCharacter"},
	{ErrUnauthorizedCaller, "UnauthorizedCaller"},
	{ErrUnimplemented, "Unimplemented"},
	{ErrAlreadyInitialized, "AlreadyInitialized"},
	{ErrContractNotInitialized, "ContractNotInitialized"},
	{ErrMethodNotFound, "MethodNotFound"},
	{ErrInvalidArguments, "InvalidArguments"},
	{ErrAccountExists, "AccountExists"},
	{ErrAccountNotFound, "AccountNotFound"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInvalidNonce, "InvalidNonce"},
	{ErrInvalidSignature, "InvalidSignature"},
	{ErrGasExceeded, "GasExceeded"},
	{ErrContractNotDeployed, "ContractNotDeployed"},
	{ErrUnknownCode, "UnknownCode"},
	{ErrActorNoPermission, "ActorNoPermission"},
	{ErrKeyNotFound, "KeyNotFound"},
	{ErrKeyExists, "KeyExists"},
}

// Kind returns the taxonomy name of the first sentinel err wraps, or "Internal".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
