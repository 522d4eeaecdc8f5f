package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/middleware"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/responses"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/validators"
	internalorders "github.com/LucasBenitez7/acme-commerce-starter-sub000/internal/orders"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

const maxReasonLength = 500

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type returnRequest struct {
	Reason string                        `json:"reason" validate:"max=500"`
	Items  []internalorders.ItemQuantity `json:"items" validate:"dive"`
}

// Detail returns the order with its items after the gate confirms the caller may view it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, orderID, ok := resolveTarget(w, r, svc, logg)
		if !ok {
			return
		}

		view, err := svc.GetOrder(r.Context(), caller, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// History returns the audit trail oldest first.
func History(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, orderID, ok := resolveTarget(w, r, svc, logg)
		if !ok {
			return
		}

		events, err := svc.ListHistory(r.Context(), caller, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

// Cancel serves both the owner and the admin cancel routes; the caller's
// role decides which transitions are allowed.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, orderID, ok := resolveTarget(w, r, svc, logg)
		if !ok {
			return
		}

		var req cancelRequest
		if err := validators.DecodeOptionalJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), caller, orderID, validators.SanitizeString(req.Reason, maxReasonLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order, caller.Role))
	}
}

// RequestReturn opens or extends a return request on a paid order.
func RequestReturn(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, orderID, ok := resolveTarget(w, r, svc, logg)
		if !ok {
			return
		}

		var req returnRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestReturn(r.Context(), caller, internalorders.RequestReturnInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(req.Reason, maxReasonLength),
			Items:   req.Items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order, caller.Role))
	}
}

func resolveTarget(w http.ResponseWriter, r *http.Request, svc internalorders.Service, logg *logger.Logger) (internalorders.Caller, uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
		return internalorders.Caller{}, uuid.Nil, false
	}

	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller"))
		return internalorders.Caller{}, uuid.Nil, false
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return internalorders.Caller{}, uuid.Nil, false
	}
	return caller, orderID, true
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	rawOrderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if rawOrderID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
