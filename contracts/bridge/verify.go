package bridge

import (
	"github.com/customeros/mailbridge/dto"
	"github.com/customeros/mailbridge/internal/command"
	mailbridge_errors "github.com/customeros/mailbridge/internal/errors"
	"github.com/customeros/mailbridge/internal/ledger"
)

// Verify reports what receive_email would do with raw without touching the ledger.
func (b *Bridge) Verify(raw []byte, bridgeAccount ledger.AccountID) dto.VerifyEmailResponse {
	plan, err := b.Evaluate(raw, bridgeAccount)
	if err != nil {
		return dto.VerifyEmailResponse{
			ErrorKind: mailbridge_errors.Kind(err),
			Error:     err.Error(),
		}
	}

	response := dto.VerifyEmailResponse{
		Valid:    true,
		Sender:   plan.Email.Sender,
		Subject:  plan.Email.Subject,
		Domain:   plan.Email.Domain,
		Identity: plan.Prefix,
		Account:  plan.Account.String(),
		Command:  plan.Command.Kind().String(),
	}
	if _, ok := plan.Command.(command.Init); !ok {
		response.Arguments = plan.Command
	}
	return response
}
