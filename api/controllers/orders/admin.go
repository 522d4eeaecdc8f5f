package orders

import (
	"net/http"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/responses"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/validators"
	internalorders "github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

type resolveRequest struct {
	Accepted      []internalorders.ItemQuantity `json:"accepted" validate:"dive"`
	RejectionNote string                        `json:"rejectionNote" validate:"max=500"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// MarkPaid records a manual payment confirmation.
func MarkPaid(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, orderID, ok := resolveTarget(w, r, svc, logg)
		if !ok {
			return
		}

		order, err := svc.MarkPaid(r.Context(), caller, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order, caller.Role))
	}
}

// ResolveReturn accepts some, all or none of the open return request.
func ResolveReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, orderID, ok := resolveTarget(w, r, svc, logg)
		if !ok {
			return
		}

		var req resolveRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ResolveReturn(r.Context(), caller, internalorders.ResolveReturnInput{
			OrderID:       orderID,
			Accepted:      req.Accepted,
			RejectionNote: validators.SanitizeString(req.RejectionNote, maxReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order, caller.Role))
	}
}

// RejectReturn closes the open return request without accepting anything.
func RejectReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, orderID, ok := resolveTarget(w, r, svc, logg)
		if !ok {
			return
		}

		var req rejectRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RejectReturn(r.Context(), caller, orderID, validators.SanitizeString(req.Reason, maxReasonLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order, caller.Role))
	}
}
