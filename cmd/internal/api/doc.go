// Package api is ledgerd's HTTP surface.
//
// It decodes and validates wire payloads, runs every authenticated route
// through the auth gate, and maps the core packages' error kinds to stable
// HTTP status codes and error codes. The core packages never see a raw
// request; this package hands them well-typed values only.
package api
