package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/ksd-co/rule-engine-postgres/credential"
	"github.com/ksd-co/rule-engine-postgres/outbound"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/ksd-co/rule-engine-postgres/types"
)

// WebhookEngine adds webhook management (spec §6 "register, update,
// delete, list, get; secret set/get/delete per webhook") on top of
// Engine's store access.
type WebhookEngine struct {
	*Engine
	Webhooks   *store.WebhookRepository
	Credential *credential.Store
}

// RegisterWebhook creates a new Webhook Descriptor.
func (w *WebhookEngine) RegisterWebhook(ctx context.Context, hook outbound.Webhook) (store.WebhookRow, *types.Error) {
	id, err := uuid.NewV4()
	if err != nil {
		return store.WebhookRow{}, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	row, merr := toRow(id.String(), hook)
	if merr != nil {
		return store.WebhookRow{}, merr
	}
	if err := w.Webhooks.Create(ctx, row); err != nil {
		return store.WebhookRow{}, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return row, nil
}

// UpdateWebhook replaces an existing webhook's descriptor, keyed by id.
func (w *WebhookEngine) UpdateWebhook(ctx context.Context, id string, hook outbound.Webhook) (store.WebhookRow, *types.Error) {
	row, merr := toRow(id, hook)
	if merr != nil {
		return store.WebhookRow{}, merr
	}
	if err := w.Webhooks.Update(ctx, row); err != nil {
		return store.WebhookRow{}, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return row, nil
}

// DeleteWebhook removes a webhook descriptor (and its sealed secret with
// it, since the row carries secret_ciphertext).
func (w *WebhookEngine) DeleteWebhook(ctx context.Context, id string) *types.Error {
	if err := w.Webhooks.Delete(ctx, id); err != nil {
		return types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return nil
}

// GetWebhook looks up a single webhook by id.
func (w *WebhookEngine) GetWebhook(ctx context.Context, id string) (store.WebhookRow, *types.Error) {
	row, err := w.Webhooks.Get(ctx, id)
	if err != nil {
		return store.WebhookRow{}, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return row, nil
}

// ListWebhooks returns every registered webhook.
func (w *WebhookEngine) ListWebhooks(ctx context.Context) ([]store.WebhookRow, *types.Error) {
	rows, err := w.Webhooks.List(ctx)
	if err != nil {
		return nil, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	return rows, nil
}

// SetWebhookSecret seals plaintext and stores the ciphertext for id.
func (w *WebhookEngine) SetWebhookSecret(ctx context.Context, id string, plaintext []byte) *types.Error {
	env, err := w.Credential.Seal(plaintext)
	if err != nil {
		return types.NewError(types.CodeCredentialSealFailed, err.Error(), nil)
	}
	if err := w.Webhooks.SetSecret(ctx, id, env.Ciphertext); err != nil {
		return types.NewError(types.CodeCredentialSealFailed, err.Error(), nil)
	}
	return nil
}

// GetWebhookSecret opens a webhook's sealed secret; ctx must carry
// credential.WithPrivilege (spec §4.I "only callable from privileged
// contexts").
func (w *WebhookEngine) GetWebhookSecret(ctx context.Context, id string) ([]byte, *types.Error) {
	ciphertext, ok, err := w.Webhooks.GetSecret(ctx, id)
	if err != nil {
		return nil, types.NewError(types.CodeCredentialOpenFailed, err.Error(), nil)
	}
	if !ok {
		return nil, types.NewError(types.CodeCredentialOpenFailed, "no secret set for webhook", map[string]interface{}{"webhookId": id})
	}
	plaintext, operr := w.Credential.Open(ctx, credential.Envelope{Ciphertext: ciphertext})
	if operr != nil {
		return nil, types.NewError(types.CodeCredentialOpenFailed, operr.Error(), nil)
	}
	return plaintext, nil
}

// DeleteWebhookSecret clears id's sealed secret.
func (w *WebhookEngine) DeleteWebhookSecret(ctx context.Context, id string) *types.Error {
	if err := w.Webhooks.DeleteSecret(ctx, id); err != nil {
		return types.NewError(types.CodeCredentialOpenFailed, err.Error(), nil)
	}
	return nil
}

func toRow(id string, hook outbound.Webhook) (store.WebhookRow, *types.Error) {
	headerMap := hook.Headers
	if headerMap == nil {
		headerMap = map[string]string{}
	}
	headers, err := json.Marshal(headerMap)
	if err != nil {
		return store.WebhookRow{}, types.NewError(types.CodeInputMalformed, err.Error(), nil)
	}
	var subject *string
	if hook.BusSubject != "" {
		subject = &hook.BusSubject
	}
	return store.WebhookRow{
		ID:                id,
		Name:              hook.Name,
		URL:               hook.URL,
		Method:            hook.Method,
		Headers:           headers,
		TimeoutMs:         hook.Timeout.Milliseconds(),
		RetryEnabled:      hook.RetryEnabled,
		MaxRetries:        hook.MaxRetries,
		RetryDelayMs:      hook.RetryDelay.Milliseconds(),
		BackoffMultiplier: hook.BackoffMultiplier,
		PublishMode:       string(hook.PublishMode),
		BusSubject:        subject,
		Enabled:           hook.Enabled,
		UpdatedAt:         time.Now().UTC(),
	}, nil
}

// FromRow reconstructs an outbound.Webhook from its persisted row, for
// callers (the publisher, the retry sweeper) that need the runtime shape.
func FromRow(row store.WebhookRow) outbound.Webhook {
	var headers map[string]string
	_ = json.Unmarshal(row.Headers, &headers)
	subject := ""
	if row.BusSubject != nil {
		subject = *row.BusSubject
	}
	return outbound.Webhook{
		ID:                row.ID,
		Name:              row.Name,
		URL:               row.URL,
		Method:            row.Method,
		Headers:           headers,
		Timeout:           time.Duration(row.TimeoutMs) * time.Millisecond,
		RetryEnabled:      row.RetryEnabled,
		MaxRetries:        row.MaxRetries,
		RetryDelay:        time.Duration(row.RetryDelayMs) * time.Millisecond,
		BackoffMultiplier: row.BackoffMultiplier,
		PublishMode:       outbound.PublishMode(row.PublishMode),
		BusSubject:        subject,
		Enabled:           row.Enabled,
	}
}
