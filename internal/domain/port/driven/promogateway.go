package driven

import (
	"context"

	"github.com/dsemenov/wallpromo/internal/domain/model"
)

// PromoGateway defines the driven port for the promotion service.
//
// QueryBalance returns the account balance for the credential.
//
// SubmitOrder places a promotion order for the post URL and returns the
// service's acceptance message. A non-nil error means the order was not
// accepted. The remote side is NOT idempotent: submitting the same URL twice
// creates two paid orders, so callers must not repeat a submission.
type PromoGateway interface {
	QueryBalance(ctx context.Context, cred model.ServiceCredential) (float64, error)
	SubmitOrder(ctx context.Context, postURL string, cred model.ServiceCredential) (string, error)
}
