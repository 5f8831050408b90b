// Package textutil provides text clean-up helpers for names that arrive over
// the air.
//
// Annotation records carry free-form filenames and product headers carry
// satellite and region labels; both are untrusted input. SanitizeFileName
// reduces a decoded name to a single safe path element, and SanitizeToken
// lowers labels into subject tokens.
package textutil
