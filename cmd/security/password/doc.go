// Package password provides password hashing and verification for ledgerd.
//
// It implements Argon2id hashing with a PHC-style encoded string format:
// configurable cost parameters (via environment variables), a minimal length
// policy, strict hash decoding, and constant-time verification with anti-DoS
// bounds on attacker-supplied hash parameters.
//
// Raw passwords are never stored or logged; only the encoded hash leaves
// this package.
package password
