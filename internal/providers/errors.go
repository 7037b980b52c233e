package providers

import (
	"errors"
	"fmt"
)

// ErrEmptyResult indicates a vendor reported success but returned zero
// usable images. Callers must treat this as failure.
var ErrEmptyResult = errors.New("provider returned no images")

// CredentialError indicates no usable API key resolved for a provider. It is
// raised before any network call is made.
type CredentialError struct {
	Provider string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s: api key not configured", e.Provider)
}

// VendorError wraps an upstream HTTP or vendor-reported failure, carrying
// the vendor's message where one was available.
type VendorError struct {
	Provider string
	Message  string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// UnknownProviderError indicates a provider name that is not registered,
// distinct from a configured-but-unauthenticated provider.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Name)
}

// UnsupportedOperationError indicates the provider does not declare the
// requested capability.
type UnsupportedOperationError struct {
	Provider string
	Op       Capability
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Op)
}

func vendorErrf(provider, format string, args ...any) *VendorError {
	return &VendorError{Provider: provider, Message: fmt.Sprintf(format, args...)}
}
