// Package jwt reads session tokens issued by the remote authentication
// backend.
//
// The service never holds the backend signing key, so tokens are decoded
// without signature verification and only used to learn when they expire.
// Tokens that are not JWTs are treated as opaque and carry no expiry.
package jwt
