package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeinz-backend/api/middleware"
	"github.com/angelmondragon/tradeinz-backend/api/responses"
	"github.com/angelmondragon/tradeinz-backend/api/validators"
	"github.com/angelmondragon/tradeinz-backend/internal/matching"
	internalorders "github.com/angelmondragon/tradeinz-backend/internal/orders"
	"github.com/angelmondragon/tradeinz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tradeinz-backend/pkg/errors"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// Feed lists the orders the partner can claim right now, nearest first.
func Feed(svc matching.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, err := uuid.Parse(middleware.PartnerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "partner context required"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListClaimable(r.Context(), partnerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Claim races for an open order on behalf of the verified partner.
func Claim(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Claim(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type respondRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=accepted rejected"`
}

// Respond resolves the partner's pending claim.
func Respond(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body respondRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		outcome, err := enums.ParseClaimOutcome(body.Outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
			return
		}

		view, err := svc.Respond(r.Context(), actor, orderID, outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type updateStatusRequest struct {
	Status       string  `json:"status" validate:"required"`
	ActualAmount *string `json:"actualAmount,omitempty"`
}

// UpdateStatus applies a generic lifecycle transition.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseSellOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		input := internalorders.UpdateStatusInput{Target: target}
		if body.ActualAmount != nil {
			amount, err := decimal.NewFromString(*body.ActualAmount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actual amount"))
				return
			}
			input.ActualAmount = &amount
		}

		view, err := svc.UpdateStatus(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type assignAgentRequest struct {
	AgentID string `json:"agentId" validate:"required,uuid"`
}

// AssignAgent attaches one of the partner's agents to the order.
func AssignAgent(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignAgentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		agentID, err := uuid.Parse(body.AgentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "agentId must be a uuid"))
			return
		}

		view, err := svc.AssignAgent(r.Context(), actor, orderID, agentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// Detail returns the full order view, including claim history.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type intakeRequest struct {
	AssessmentRef     string         `json:"assessmentRef" validate:"required"`
	QuoteAmount       string         `json:"quoteAmount" validate:"required"`
	PickupAddress     string         `json:"pickupAddress" validate:"required"`
	PickupLocation    types.GeoPoint `json:"pickupLocation"`
	PickupWindowStart time.Time      `json:"pickupWindowStart" validate:"required"`
	PickupWindowEnd   time.Time      `json:"pickupWindowEnd" validate:"required"`
	OpenImmediately   bool           `json:"openImmediately"`
}

// Intake creates a sell order from a completed assessment. Internal callers
// only.
func Intake(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := middleware.ActorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body intakeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := decimal.NewFromString(body.QuoteAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quote amount"))
			return
		}

		view, err := svc.Intake(r.Context(), actor, internalorders.IntakeInput{
			AssessmentRef:     body.AssessmentRef,
			QuoteAmount:       quote,
			PickupAddress:     body.PickupAddress,
			PickupLocation:    body.PickupLocation,
			PickupWindowStart: body.PickupWindowStart,
			PickupWindowEnd:   body.PickupWindowEnd,
			OpenImmediately:   body.OpenImmediately,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}
