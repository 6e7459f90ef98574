package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the ledger or it
	// answered with a non-success status.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrNotFound indicates the ledger answered 404 for the requested resource.
	ErrNotFound = errors.New("network: resource not found")

	// ErrInvalidResponse indicates the ledger returned a malformed or unexpected body.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrInvalidEndpoint indicates the configured endpoint is not an http(s) or srv URL.
	ErrInvalidEndpoint = errors.New("network: invalid endpoint")

	// ErrDNSLookupFailed indicates an SRV lookup for endpoint discovery failed.
	ErrDNSLookupFailed = errors.New("network: DNS lookup failed")

	// ErrDNSSECValidationFailed indicates the resolver did not authenticate the answer.
	ErrDNSSECValidationFailed = errors.New("network: DNSSEC validation failed")

	// ErrNoEndpoints indicates discovery produced no usable endpoint.
	ErrNoEndpoints = errors.New("network: no endpoints found")
)
