// Package keygen generates ECDSA key pairs used as repository deploy keys.
//
// Keys are produced in three formats: the private key as SEC1 PEM, the
// public key as PKIX PEM, and the public key in OpenSSH authorized_keys
// format, suitable for registering as a GitHub deploy key.
package keygen
