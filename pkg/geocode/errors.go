package geocode

import (
	"errors"
	"fmt"
)

// FailureKind classifies a per-query provider failure.
type FailureKind string

const (
	// KindNetwork covers transport errors: timeouts, DNS, refused connections.
	KindNetwork FailureKind = "network"
	// KindStatus covers non-2xx responses and API-level rejections.
	KindStatus FailureKind = "http status"
	// KindParse covers responses the adapter cannot interpret.
	KindParse FailureKind = "parse"
)

// ProviderError is a typed per-query failure from a provider adapter.
type ProviderError struct {
	Provider string
	Kind     FailureKind
	Status   int // HTTP status code when Kind is KindStatus, else 0
	Err      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("geocode: %s returned status %d", e.Provider, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("geocode: %s %s failure: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("geocode: %s %s failure", e.Provider, e.Kind)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Reason returns the failure kind for logging, or "error" for failures that
// did not originate from a provider adapter.
func Reason(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return "error"
}

func networkErr(provider string, err error) error {
	return &ProviderError{Provider: provider, Kind: KindNetwork, Err: err}
}

func statusErr(provider string, status int) error {
	return &ProviderError{Provider: provider, Kind: KindStatus, Status: status}
}

func parseErr(provider string, err error) error {
	return &ProviderError{Provider: provider, Kind: KindParse, Err: err}
}
