package membership

import "context"

// Gateway is the opaque payment-gateway capability this core consumes. The
// raw HTTP client behind it is an external collaborator; calls are short-lived
// and not retried here (the gateway redelivers webhooks on its own).
type Gateway interface {
	FetchPayment(ctx context.Context, paymentID string) (*PaymentRecord, error)
	FetchSubscription(ctx context.Context, subscriptionID string) (*SubscriptionRecord, error)
}
