package worker

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/skartik/commerce-api/pkg/errors"
)

type statusErr struct {
	status int
}

func (e *statusErr) Error() string   { return "rejected by relay api" }
func (e *statusErr) StatusCode() int { return e.status }

func TestClassifyPermanentDataErrors(t *testing.T) {
	cases := []error{
		errors.New("order not found"),
		errors.New("invalid order id"),
		errors.New("unknown event type \"bogus\""),
		errors.New("unsupported locale \"xx\""),
		apperrors.NotFound("user", nil),
	}
	for _, err := range cases {
		cls := Classify(err)
		assert.Equal(t, CategoryValidation, cls.Category, err.Error())
		assert.False(t, cls.Retryable, err.Error())
	}
}

func TestClassifyPermanentTransportErrors(t *testing.T) {
	cases := []error{
		errors.New("550 mailbox unavailable"),
		errors.New("smtp: address rejected"),
		errors.New("sender blacklisted by provider"),
	}
	for _, err := range cases {
		cls := Classify(err)
		assert.Equal(t, CategoryTransportPermanent, cls.Category, err.Error())
		assert.False(t, cls.Retryable, err.Error())
	}
}

func TestClassifyPermanentStatusCodes(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 410, 422, 451} {
		cls := Classify(&statusErr{status: status})
		assert.False(t, cls.Retryable, "status %d", status)
		assert.Equal(t, CategoryTransportPermanent, cls.Category)
	}

	// 500 and 429 are not in the permanent set; message decides.
	cls := Classify(&statusErr{status: 500})
	assert.True(t, cls.Retryable)
}

func TestClassifyWrappedStatusCode(t *testing.T) {
	err := fmt.Errorf("send failed: %w", &statusErr{status: 422})
	cls := Classify(err)
	assert.False(t, cls.Retryable)
}

func TestClassifySMTPEnhancedCodes(t *testing.T) {
	cls := Classify(errors.New("550 5.1.1 recipient mailbox does not exist"))
	assert.Equal(t, CategoryTransportPermanent, cls.Category)
	assert.False(t, cls.Retryable)
}

func TestClassifyTransientErrors(t *testing.T) {
	cases := []error{
		errors.New("dial tcp 10.0.0.1:587: i/o timeout"),
		errors.New("read: connection reset by peer"),
		errors.New("ECONNREFUSED"),
		errors.New("451 try again later"),
		errors.New("unexpected EOF"),
	}
	for _, err := range cases {
		cls := Classify(err)
		assert.True(t, cls.Retryable, err.Error())
		assert.Equal(t, CategoryTransportTransient, cls.Category, err.Error())
	}
}

func TestClassifyEOFAsTransient(t *testing.T) {
	cases := []error{
		fmt.Errorf("read response: %w", io.EOF),
		io.ErrUnexpectedEOF,
		errors.New("read tcp 10.0.0.5:587: EOF"),
	}
	for _, err := range cases {
		cls := Classify(err)
		assert.True(t, cls.Retryable, err.Error())
		assert.Equal(t, CategoryTransportTransient, cls.Category, err.Error())
	}
}

func TestClassifyEOFRequiresWholeToken(t *testing.T) {
	// "eof" buried inside a word is no transport signal.
	cls := Classify(errors.New("geofence mismatch for shipping region"))
	assert.Equal(t, CategoryUnknown, cls.Category)
	assert.True(t, cls.Retryable)
}

func TestClassifyInfrastructureErrors(t *testing.T) {
	cls := Classify(errors.New("redis: connection pool exhausted"))
	assert.Equal(t, CategoryInfrastructure, cls.Category)
	assert.True(t, cls.Retryable)

	cls = Classify(errors.New("database is starting up"))
	assert.Equal(t, CategoryInfrastructure, cls.Category)
	assert.True(t, cls.Retryable)
}

func TestClassifyUnknownDefaultsToTransient(t *testing.T) {
	cls := Classify(errors.New("something odd happened"))
	assert.Equal(t, CategoryUnknown, cls.Category)
	assert.True(t, cls.Retryable)
}

func TestClassifyOrderMatters(t *testing.T) {
	// "invalid recipient ... timeout" matches a permanent transport pattern
	// before any transient pattern; first match wins.
	cls := Classify(errors.New("invalid recipient, upstream timeout"))
	assert.False(t, cls.Retryable)
}

func TestClassifyNil(t *testing.T) {
	cls := Classify(nil)
	assert.False(t, cls.Retryable)
	assert.Equal(t, CategoryUnknown, cls.Category)
}
