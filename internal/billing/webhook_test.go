package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signed(payload string, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func TestParseStripeEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Event
	}{
		{
			name:    "full refund",
			payload: `{"id":"evt_1","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_123","refunded":true,"amount_refunded":6500}}}`,
			want:    Event{ID: "evt_1", Type: EventChargeRefunded, PaymentIntentID: "pi_123", AmountCents: 6500, Refunded: true},
		},
		{
			name:    "partial refund",
			payload: `{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_2","object":"charge","payment_intent":"pi_456","refunded":false,"amount_refunded":500}}}`,
			want:    Event{ID: "evt_2", Type: EventChargeRefunded, PaymentIntentID: "pi_456", AmountCents: 500},
		},
		{
			name:    "payment failed",
			payload: `{"id":"evt_3","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_789","object":"payment_intent","amount":2500,"last_payment_error":{"code":"card_declined"}}}}`,
			want:    Event{ID: "evt_3", Type: EventPaymentFailed, PaymentIntentID: "pi_789", AmountCents: 2500, FailureCode: "card_declined"},
		},
		{
			name:    "other event",
			payload: `{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			want:    Event{ID: "evt_4", Type: "customer.created"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStripeEvent([]byte(tt.payload), signed(tt.payload, testWebhookSecret), testWebhookSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseStripeEvent_RejectsBadSignature(t *testing.T) {
	payload := `{"id":"evt_1","object":"event","type":"charge.refunded","data":{"object":{}}}`

	for name, header := range map[string]string{
		"missing":      "",
		"wrong secret": signed(payload, "whsec_other"),
		"garbage":      "t=1,v1=deadbeef",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStripeEvent([]byte(payload), header, testWebhookSecret)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestParseStripeEvent_MalformedButSigned(t *testing.T) {
	for name, payload := range map[string]string{
		"not json":              `{"id":"evt_1",`,
		"charge with bad field": `{"id":"evt_1","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge","refunded":"yes"}}}`,
		"intent with bad field": `{"id":"evt_2","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","amount":"lots"}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStripeEvent([]byte(payload), signed(payload, testWebhookSecret), testWebhookSecret)
			assert.ErrorIs(t, err, ErrMalformedEvent)
			assert.NotErrorIs(t, err, ErrInvalidSignature)
		})
	}
}
