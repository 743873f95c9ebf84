package worker

import (
	stderrors "errors"
	"io"
	"strings"

	"github.com/skartik/commerce-api/pkg/errors"
)

// Category describes where in the stack a failure originated.
type Category string

const (
	CategoryValidation         Category = "validation"
	CategoryTransportPermanent Category = "transport_permanent"
	CategoryTransportTransient Category = "transport_transient"
	CategoryInfrastructure     Category = "infrastructure"
	CategoryUnknown            Category = "unknown"
)

// Classification is the classifier's verdict on one failure. Computed per
// failure for logging and the retry/dead-letter branch; never persisted.
type Classification struct {
	Category       Category `json:"category"`
	Severity       string   `json:"severity"`
	Retryable      bool     `json:"retryable"`
	ActionRequired string   `json:"action_required"`
}

// Ordered pattern sets. First match wins.
var permanentDataPatterns = []string{
	"not found",
	"invalid",
	"unauthorized",
	"forbidden",
	"malformed",
	"missing required",
	"unknown event type",
	"unsupported locale",
}

var permanentTransportPatterns = []string{
	"invalid recipient",
	"mailbox unavailable",
	"mailbox not found",
	"no such user",
	"user unknown",
	"address rejected",
	"recipient rejected",
	"blacklisted",
	"blocked",
	"quota exceeded",
	"message too large",
}

var permanentStatusCodes = map[int]bool{
	400: true,
	401: true,
	403: true,
	404: true,
	410: true,
	422: true,
	451: true,
}

// SMTP enhanced status codes that indicate the recipient or content will
// never be accepted.
var permanentSMTPCodes = []string{
	"5.1.1", // bad destination mailbox
	"5.1.2", // bad destination system
	"5.1.3", // bad destination mailbox syntax
	"5.2.1", // mailbox disabled
	"5.2.2", // mailbox full
	"5.4.1", // recipient address rejected
	"5.7.1", // delivery not authorized
}

var transientPatterns = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection reset",
	"econnreset",
	"econnrefused",
	"connection refused",
	"connection closed",
	"broken pipe",
	"no such host",
	"dns",
	"network",
	"rate limit",
	"too many requests",
	"temporarily",
	"try again",
	"service unavailable",
	"bad gateway",
	"internal server error",
	"redis",
	"database",
	"i/o error",
	"unexpected eof",
}

// statusCarrier is implemented by errors that carry an HTTP-like status.
type statusCarrier interface {
	StatusCode() int
}

// Classify maps an error to permanent-vs-transient plus a diagnostic
// category. Pure; the caller logs the decision. Rules are checked in order
// and the first match wins. Unknown errors default to transient: abandoning
// a deliverable email costs more than a wasted retry.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryUnknown, Severity: "info", Retryable: false}
	}

	msg := strings.ToLower(err.Error())

	for _, p := range permanentDataPatterns {
		if strings.Contains(msg, p) {
			return Classification{
				Category:       CategoryValidation,
				Severity:       "error",
				Retryable:      false,
				ActionRequired: "fix the referenced data or event payload",
			}
		}
	}

	for _, p := range permanentTransportPatterns {
		if strings.Contains(msg, p) {
			return Classification{
				Category:       CategoryTransportPermanent,
				Severity:       "error",
				Retryable:      false,
				ActionRequired: "verify the recipient address",
			}
		}
	}

	if status := statusOf(err); status != 0 && permanentStatusCodes[status] {
		return Classification{
			Category:       CategoryTransportPermanent,
			Severity:       "error",
			Retryable:      false,
			ActionRequired: "inspect the rejected request",
		}
	}

	for _, code := range permanentSMTPCodes {
		if strings.Contains(msg, code) {
			return Classification{
				Category:       CategoryTransportPermanent,
				Severity:       "error",
				Retryable:      false,
				ActionRequired: "verify the recipient address",
			}
		}
	}

	// "eof" only counts as a whole token: bare substring matching would fire
	// on words that merely contain it.
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) ||
		msg == "eof" || strings.HasSuffix(msg, " eof") {
		return Classification{
			Category:  CategoryTransportTransient,
			Severity:  "warning",
			Retryable: true,
		}
	}

	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			category := CategoryTransportTransient
			if strings.Contains(msg, "redis") || strings.Contains(msg, "database") {
				category = CategoryInfrastructure
			}
			return Classification{
				Category:  category,
				Severity:  "warning",
				Retryable: true,
			}
		}
	}

	return Classification{
		Category:  CategoryUnknown,
		Severity:  "warning",
		Retryable: true,
	}
}

func statusOf(err error) int {
	var sc statusCarrier
	if stderrors.As(err, &sc) {
		return sc.StatusCode()
	}
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
