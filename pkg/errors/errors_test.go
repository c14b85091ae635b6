package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:               http.StatusBadRequest,
		CodeUnauthorized:             http.StatusUnauthorized,
		CodeForbidden:                http.StatusForbidden,
		CodeNotFound:                 http.StatusNotFound,
		CodeStateConflict:            http.StatusUnprocessableEntity,
		CodeDuplicateApplication:     http.StatusConflict,
		CodeDependency:               http.StatusServiceUnavailable,
		CodeSettlementPartialFailure: http.StatusInternalServerError,
		"SOMETHING_UNKNOWN":          http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, MetadataFor(code).HTTPStatus, string(code))
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "engagement is not active", New(CodeStateConflict, "engagement is not active").PublicMessage())
	assert.Equal(t, "state transition disallowed", New(CodeStateConflict, "").PublicMessage())
	// internal messages never leak
	assert.Equal(t, "internal server error", New(CodeInternal, "pq: relation missing").PublicMessage())
	assert.Equal(t, "settlement could not be completed",
		Wrap(CodeSettlementPartialFailure, stdErrors.New("x"), "credit failed").PublicMessage())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")

	require.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: ctx: boom", wrapped.Error())
	assert.Equal(t, "NOT_FOUND: project 7 not found", Newf(CodeNotFound, "project %d not found", 7).Error())
}

func TestNilErrorIsSafe(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.WithDetails("x"))
	assert.Nil(t, As(nil))
}

func TestIsCodeWalksWrappedChain(t *testing.T) {
	outer := fmt.Errorf("apply: %w", New(CodeDuplicateApplication, "already applied"))

	assert.True(t, IsCode(outer, CodeDuplicateApplication))
	assert.False(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeInternal))
}

func TestNormalize(t *testing.T) {
	typed := New(CodeForbidden, "not your project")
	assert.Same(t, typed, Normalize(fmt.Errorf("wrap: %w", typed)))
	assert.Equal(t, CodeInternal, Normalize(stdErrors.New("plain")).Code())
	assert.Equal(t, CodeInternal, Normalize(nil).Code())
}

func TestDumpExtractsStep(t *testing.T) {
	err := Wrap(CodeSettlementPartialFailure, stdErrors.New("balance row missing"), "settlement failed").
		WithDetails(map[string]any{"step": "balance_credit"})

	d := Dump(err)
	assert.Equal(t, CodeSettlementPartialFailure, d.Code)
	assert.Equal(t, "balance_credit", d.Step)
	assert.Len(t, d.Chain, 2)
}
