package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/types"
)

// detailLogKeys are lifted from error details into the request log line.
var detailLogKeys = []string{"order_id", "dependency", "field"}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError renders err as the error envelope. Anything that is not a typed
// error becomes INTERNAL_ERROR. Client errors keep their own message; server
// errors only ever show the code's public message.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	apiErr := types.APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
		RequestID: logger.RequestIDFromContext(ctx),
	}
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		apiErr.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, errorLogFields(err, typed))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

func errorLogFields(err error, typed *pkgerrors.Error) map[string]any {
	dump := pkgerrors.Dump(err)
	fields := map[string]any{
		"error":       dump.TopMessage,
		"error_code":  typed.Code(),
		"error_chain": dump.Chain,
		"retryable":   dump.Retryable,
	}
	if dump.PGCode != "" {
		fields["pg_code"] = dump.PGCode
		fields["pg_class"] = dump.PGClass
		fields["pg_table"] = dump.PGTable
		fields["pg_constraint"] = dump.PGConstraint
		fields["pg_detail"] = dump.PGDetail
	}
	if details, ok := typed.Details().(map[string]any); ok {
		for _, key := range detailLogKeys {
			if v, ok := details[key]; ok {
				fields[key] = v
			}
		}
	}
	return fields
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent, so an encode failure can only be dropped
	_ = json.NewEncoder(w).Encode(payload)
}
