package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

// MaxBodyBytes bounds every request body the API reads; a return request for
// a large order is still well under it.
const MaxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// DecodeJSONBody decodes a single JSON object into dest and validates it.
// Unknown fields, trailing data and bodies over 64KiB are rejected.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dest any) error {
	return decode(w, r, dest, false)
}

// DecodeOptionalJSONBody is DecodeJSONBody for endpoints where the body may be
// omitted, such as a cancel without a reason.
func DecodeOptionalJSONBody(w http.ResponseWriter, r *http.Request, dest any) error {
	return decode(w, r, dest, true)
}

func decode(w http.ResponseWriter, r *http.Request, dest any, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	}
	body := LimitBody(w, r)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return bodyError(err)
	}
	if decoder.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must contain a single JSON object")
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// LimitBody caps r.Body at MaxBodyBytes. Reads past the cap fail with an
// error that BodyTooLarge recognizes.
func LimitBody(w http.ResponseWriter, r *http.Request) io.ReadCloser {
	return http.MaxBytesReader(w, r.Body, MaxBodyBytes)
}

// BodyTooLarge returns a PAYLOAD_TOO_LARGE error when err came from reading
// past a LimitBody cap, and nil otherwise.
func BodyTooLarge(err error) error {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodePayloadTooLarge, err, "request body too large").
		WithDetails(map[string]any{"limitBytes": tooLarge.Limit})
}

func bodyError(err error) error {
	if tooLarge := BodyTooLarge(err); tooLarge != nil {
		return tooLarge
	}
	if errors.Is(err, io.EOF) {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}

// formatValidationErrors keys details by JSON path, e.g. items[1].qty, so a
// bad return line can be pointed at directly.
func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := map[string]string{}
	for _, fieldErr := range errs {
		details[fieldPath(fieldErr)] = validationMessage(fieldErr)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid id"
	}
	return "is invalid"
}
