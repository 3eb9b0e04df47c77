// Package textutil provides small text helpers shared by the drafting and
// reporting code: person-name derivation from addresses, rune-safe truncation,
// and a generic conditional.
package textutil
