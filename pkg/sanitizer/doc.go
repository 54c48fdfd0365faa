// Package sanitizer normalizes user supplied text before validation and storage.
//
// All functions are idempotent and never fail: input that cannot be normalized
// comes back as an empty string so the validator rejects it.
package sanitizer
