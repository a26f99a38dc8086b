package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rgalindo-dev/storely-backend/api/responses"
	"github.com/rgalindo-dev/storely-backend/internal/webhooks/gateway"
	"github.com/rgalindo-dev/storely-backend/pkg/config"
	"github.com/rgalindo-dev/storely-backend/pkg/db/models"
	"github.com/rgalindo-dev/storely-backend/pkg/enums"
	pkgerrors "github.com/rgalindo-dev/storely-backend/pkg/errors"
	"github.com/rgalindo-dev/storely-backend/pkg/logger"
	"github.com/rgalindo-dev/storely-backend/pkg/metrics"
)

// SignatureHeader carries the gateway's timestamp+signature tuple.
const SignatureHeader = "Gateway-Signature"

type GatewayEventService interface {
	HandleEvent(ctx context.Context, event *gateway.GatewayEvent) (*gateway.Outcome, error)
}

type eventLedger interface {
	Record(ctx context.Context, event *models.WebhookEvent) (duplicate bool, err error)
	Finalize(ctx context.Context, eventID string, status enums.EventProcessingStatus, errMsg string) error
}

// Receipt is the response body the gateway expects. It is written without
// the API envelope; the shape is part of the webhook contract.
type Receipt struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
	Ignored   bool `json:"ignored,omitempty"`
}

// GatewayWebhook ingests payment-gateway events: verify the signature over
// the exact raw bytes, decode, record in the idempotency ledger, dispatch
// first sightings, and always answer 2xx for events that were understood,
// duplicates included, so the gateway stops redelivering.
func GatewayWebhook(
	svc GatewayEventService,
	ledger eventLedger,
	cfg config.GatewayConfig,
	validate *validator.Validate,
	webhookMetrics *metrics.WebhookMetrics,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || ledger == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		// Nothing is parsed before the signature holds.
		sigErr := gateway.VerifySignature(payload, r.Header.Get(SignatureHeader), cfg.WebhookSecret, cfg.SignatureTolerance, time.Now())
		if sigErr != nil {
			webhookMetrics.IncOutcome("unknown", metrics.OutcomeRejected)
			switch {
			case errors.Is(sigErr, gateway.ErrSecretNotConfigured):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, sigErr, "webhook secret not configured"))
			case errors.Is(sigErr, gateway.ErrSignatureMissing):
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, sigErr, "signature missing"))
			default:
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, sigErr, "signature invalid"))
			}
			return
		}

		var event gateway.GatewayEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			webhookMetrics.IncOutcome("unknown", metrics.OutcomeRejected)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}
		if validate != nil {
			if err := validate.Struct(&event); err != nil {
				webhookMetrics.IncOutcome(event.Type, metrics.OutcomeRejected)
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "event id and type are required"))
				return
			}
		}

		ctx = logg.WithEventID(ctx, event.ID)

		row := &models.WebhookEvent{
			EventID:   event.ID,
			EventType: event.Type,
			Payload:   json.RawMessage(payload),
		}
		if event.Created > 0 {
			created := time.Unix(event.Created, 0).UTC()
			row.EventCreated = &created
		}

		duplicate, err := ledger.Record(ctx, row)
		if err != nil {
			webhookMetrics.IncOutcome(event.Type, metrics.OutcomeFailed)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record event"))
			return
		}
		if duplicate {
			// Redelivery of an already-sighted event id: acknowledge, touch
			// nothing.
			webhookMetrics.IncOutcome(event.Type, metrics.OutcomeDuplicate)
			logg.Info(ctx, "duplicate event delivery acknowledged")
			responses.WriteJSON(w, http.StatusOK, Receipt{Received: true, Duplicate: true})
			return
		}

		started := time.Now()
		outcome, err := svc.HandleEvent(ctx, &event)
		webhookMetrics.ObserveDuration(event.Type, time.Since(started))
		if err != nil {
			webhookMetrics.IncOutcome(event.Type, metrics.OutcomeFailed)
			if ferr := ledger.Finalize(ctx, event.ID, enums.EventProcessingStatusFailed, err.Error()); ferr != nil {
				logg.Error(ctx, "failed to finalize event ledger row", ferr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if ferr := ledger.Finalize(ctx, event.ID, enums.EventProcessingStatusCompleted, ""); ferr != nil {
			// Side effects are already durable; the pending audit row is
			// logged, not worth failing the delivery over.
			logg.Error(ctx, "failed to finalize event ledger row", ferr)
		}

		receipt := Receipt{Received: true}
		outcomeLabel := metrics.OutcomeProcessed
		if outcome != nil {
			receipt.Duplicate = outcome.Duplicate
			receipt.Ignored = outcome.Ignored
			switch {
			case outcome.Duplicate:
				outcomeLabel = metrics.OutcomeDuplicate
			case outcome.Ignored:
				outcomeLabel = metrics.OutcomeIgnored
			}
		}
		webhookMetrics.IncOutcome(event.Type, outcomeLabel)
		logg.Info(ctx, fmt.Sprintf("gateway event %s processed", event.ID))
		responses.WriteJSON(w, http.StatusOK, receipt)
	}
}
