package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLine struct {
	ID  string `json:"id" validate:"required"`
	Qty int    `json:"qty" validate:"gte=1"`
}

type testQuote struct {
	Name  string     `json:"name" validate:"required"`
	Email string     `json:"email" validate:"required,email"`
	Notes string     `json:"notes" validate:"max=10"`
	Sort  string     `json:"sort" validate:"omitempty,oneof=price_asc price_desc"`
	Items []testLine `json:"items" validate:"min=1,dive"`
}

func validQuote() testQuote {
	return testQuote{
		Name:  "Ana",
		Email: "ana@example.com",
		Items: []testLine{{ID: "p1", Qty: 2}},
	}
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validQuote()))
}

func TestValidate_MissingRequired_UsesJSONName(t *testing.T) {
	q := validQuote()
	q.Name = ""
	err := Validate(q)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["name"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	q := validQuote()
	q.Email = "not-an-email"
	err := Validate(q)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["email"])
}

func TestValidate_EmptySlice(t *testing.T) {
	q := validQuote()
	q.Items = nil
	err := Validate(q)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must contain at least 1 item(s)", valErr.Fields()["items"])
}

func TestValidate_DiveReportsIndexedPath(t *testing.T) {
	q := validQuote()
	q.Items = append(q.Items, testLine{ID: "p2", Qty: 0})
	err := Validate(q)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be greater than or equal to 1", valErr.Fields()["items[1].qty"])
}

func TestValidate_MaxString(t *testing.T) {
	q := validQuote()
	q.Notes = strings.Repeat("x", 11)
	err := Validate(q)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at most 10", valErr.Fields()["notes"])
}

func TestValidate_OneOf(t *testing.T) {
	q := validQuote()
	q.Sort = "random"
	err := Validate(q)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["sort"], "must be one of")
}

func TestValidationError_ErrorString(t *testing.T) {
	q := validQuote()
	q.Name = ""
	q.Email = ""
	err := Validate(q)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "field 'name' is required")
	assert.Contains(t, err.Error(), "field 'email' is required")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"name":"Ana","email":"ana@example.com","items":[{"id":"p1","qty":3}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var q testQuote
	require.NoError(t, DecodeAndValidate(req, &q))
	assert.Equal(t, 3, q.Items[0].Qty)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))

	var q testQuote
	err := DecodeAndValidate(req, &q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana","email":"ana@example.com","items":[]}`))

	var q testQuote
	err := DecodeAndValidate(req, &q)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}
