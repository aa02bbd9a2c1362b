package memerr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	e := New(CodeEmbeddingDimensionInvalid, "dimension mismatch", nil)
	assert.Equal(t, CategoryEmbedding, e.Category)
	assert.Equal(t, SeverityCritical, e.Severity)
	assert.True(t, IsFatal(e))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(CodeQueryEmpty, "query is empty", nil)
	b := New(CodeQueryEmpty, "different message", nil)
	assert.True(t, errors.Is(a, b))
}

func TestWrap_PassesThroughExistingError(t *testing.T) {
	a := New(CodeFileNotFound, "missing", nil)
	wrapped := Wrap(CodeDBQueryFailed, a)
	assert.Same(t, a, wrapped)
}

func TestIsTransient_ClassifiesKnownMarkers(t *testing.T) {
	assert.True(t, IsTransient(errors.New("database is locked")))
	assert.True(t, IsTransient(errors.New("rate limit exceeded")))
	assert.False(t, IsTransient(errors.New("unauthorized: invalid api key")))
	assert.False(t, IsTransient(nil))
}

func TestIsPermanent_ClassifiesAuthFailures(t *testing.T) {
	assert.True(t, IsPermanent(errors.New("403 forbidden")))
	assert.False(t, IsPermanent(errors.New("connection reset")))
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{MaxRetries: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}, func() error {
		attempts++
		return errors.New("access denied")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_RetriesTransientUntilSuccess(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{MaxRetries: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", WithMaxFailures(2), WithResetTimeout(time.Hour))
	_ = cb.Execute(func() error { return errors.New("boom") })
	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestToEnvelope_UnmatchedErrorIsGeneric(t *testing.T) {
	env := ToEnvelope("memory_search", errors.New("boom"))
	assert.Equal(t, "An unexpected error occurred.", env.Summary)
	assert.True(t, env.Meta.IsError)
}

func TestToEnvelope_TypedErrorCarriesCodeAndHints(t *testing.T) {
	env := ToEnvelope("memory_search", New(CodeQueryEmpty, "query is empty", nil))
	assert.Equal(t, CodeQueryEmpty, env.Data.Code)
	assert.NotEmpty(t, env.Hints)
}
