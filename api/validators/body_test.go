package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
)

type line struct {
	ItemID string `json:"itemId" validate:"required"`
	Qty    int    `json:"qty" validate:"gte=1"`
}

type sampleRequest struct {
	Reason string `json:"reason" validate:"max=10"`
	Items  []line `json:"items" validate:"dive"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/orders/1/returns", strings.NewReader(body))
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest sampleRequest
	err := DecodeJSONBody(httptest.NewRecorder(), postJSON(`{"reason":"ok","extra":1}`), &dest)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDecodeJSONBodyReportsFieldsByJSONPath(t *testing.T) {
	var dest sampleRequest
	err := DecodeJSONBody(httptest.NewRecorder(),
		postJSON(`{"reason":"way too long reason","items":[{"itemId":"a","qty":2},{"itemId":"","qty":0}]}`), &dest)
	require.Error(t, err)

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"reason":          "must be at most 10",
		"items[1].itemId": "is required",
		"items[1].qty":    "must be at least 1",
	}, details)
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	var dest sampleRequest
	err := DecodeJSONBody(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), &dest)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyRejectsTrailingData(t *testing.T) {
	var dest sampleRequest
	err := DecodeJSONBody(httptest.NewRecorder(), postJSON(`{"reason":"ok"}{"reason":"again"}`), &dest)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	var dest sampleRequest
	body := `{"reason":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	err := DecodeJSONBody(httptest.NewRecorder(), postJSON(body), &dest)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePayloadTooLarge, pkgerrors.CodeOf(err))
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
	assert.Equal(t, http.StatusRequestEntityTooLarge, pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).HTTPStatus)
}

func TestDecodeOptionalJSONBodyAcceptsEmptyBody(t *testing.T) {
	var dest sampleRequest
	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), &dest))
	assert.Empty(t, dest.Reason)

	chunked := postJSON("")
	chunked.ContentLength = -1
	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRecorder(), chunked, &dest))
}

func TestDecodeOptionalJSONBodyStillValidates(t *testing.T) {
	var dest sampleRequest
	err := DecodeOptionalJSONBody(httptest.NewRecorder(), postJSON(`{"reason":"far beyond ten runes"}`), &dest)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSanitizeStringKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "añ", SanitizeString("  añb ", 2))
	assert.Equal(t, "hola", SanitizeString(" hola ", 0))
}
