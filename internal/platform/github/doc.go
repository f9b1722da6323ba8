// Package github is the source-hosting provider: it creates tenant
// workspace repositories, sets their default branch, registers Flux deploy
// keys and grants GitHub teams push access.
//
// All operations are get-or-create so a second apply against the same
// owner reports unchanged or adopted outcomes instead of failing.
package github
