package api

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/ksd-co/rule-engine-postgres/outbound"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// OutboundEngine adds the outbound dispatch accessors (spec §6 "call-
// unified (honors publishMode), publish-to-bus, check call status, retry")
// on top of Engine's store access.
type OutboundEngine struct {
	*Engine
	Webhooks  *store.WebhookRepository
	Envelopes *store.EnvelopeRepository
	Publisher *outbound.Publisher
}

// Call fans payload out through webhookID's own configured PublishMode —
// "call-unified" in spec §6 terms, honoring whatever the webhook's own
// publishMode says rather than a caller-chosen transport.
func (o *OutboundEngine) Call(ctx context.Context, webhookID string, payload []byte) *types.Error {
	row, err := o.Webhooks.Get(ctx, webhookID)
	if err != nil {
		return types.NewError(types.CodeTriggerMisconfigured, err.Error(), map[string]interface{}{"webhookId": webhookID})
	}
	if perr := o.Publisher.Publish(ctx, FromRow(row), payload); perr != nil {
		return types.NewError(types.CodeQueueConsumerCrashed, perr.Error(), nil)
	}
	return nil
}

// PublishToBus forces a bus-leg publish regardless of the webhook's
// configured PublishMode (spec §6 "publish-to-bus" as a distinct
// operation from the unified call).
func (o *OutboundEngine) PublishToBus(ctx context.Context, webhookID string, payload []byte) (outbound.BusAck, *types.Error) {
	row, err := o.Webhooks.Get(ctx, webhookID)
	if err != nil {
		return outbound.BusAck{}, types.NewError(types.CodeTriggerMisconfigured, err.Error(), nil)
	}
	hook := FromRow(row)
	if o.Publisher.Bus == nil {
		return outbound.BusAck{}, types.NewError(types.CodeBusUnavailable, "no bus transport configured", nil)
	}
	id, uerr := uuid.NewV4()
	if uerr != nil {
		return outbound.BusAck{}, types.NewError(types.CodeBusPublishFailed, uerr.Error(), nil)
	}
	ack, perr := o.Publisher.Bus.Publish(ctx, hook.BusSubject, id.String(), payload)
	if perr != nil {
		return outbound.BusAck{}, types.NewError(types.CodeBusPublishFailed, perr.Error(), nil)
	}
	return ack, nil
}

// CallStatus returns the persisted outcome of one outbound envelope (spec
// §6 "check call status").
func (o *OutboundEngine) CallStatus(ctx context.Context, envelopeID string) (store.EnvelopeRow, *types.Error) {
	row, err := o.Envelopes.Get(ctx, envelopeID)
	if err != nil {
		return store.EnvelopeRow{}, types.NewError(types.CodeQueueConsumerCrashed, err.Error(), nil)
	}
	return row, nil
}

// Retry re-attempts delivery for envelopeID immediately, outside the
// sweeper's own schedule (spec §6 "retry" as a callable distinct from the
// automatic retry sweep).
func (o *OutboundEngine) Retry(ctx context.Context, envelopeID string) *types.Error {
	row, err := o.Envelopes.Get(ctx, envelopeID)
	if err != nil {
		return types.NewError(types.CodeQueueConsumerCrashed, err.Error(), nil)
	}
	webhookRow, werr := o.Webhooks.Get(ctx, row.WebhookID)
	if werr != nil {
		return types.NewError(types.CodeTriggerMisconfigured, werr.Error(), nil)
	}
	if perr := o.Publisher.Publish(ctx, FromRow(webhookRow), row.Payload); perr != nil {
		return types.NewError(types.CodeQueueConsumerCrashed, perr.Error(), nil)
	}
	return nil
}
