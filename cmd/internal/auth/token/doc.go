// Package token issues and verifies ledgerd's bearer tokens.
//
// Tokens are stateless HS256 JWTs signed with a process-wide secret: the
// subject is the principal's username and the lifetime is bounded by policy.
// Verification validates the signature before inspecting any claims, then
// checks expiry with zero leeway by default (LEDGERD_TOKEN_LEEWAY can widen
// it; the grace window is then exactly that duration).
//
// The signing secret is immutable for the process lifetime. Rotating it (by
// restarting with a new LEDGERD_TOKEN_SECRET) invalidates every previously
// issued token; nothing re-validates them automatically.
package token
