// Package auth implements password hashing, signed access tokens and token
// revocation.
package auth
