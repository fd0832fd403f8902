// Package canon produces RFC 8785 canonical JSON and content fingerprints.
//
// Fingerprints are the version tokens handed out by the in-process stores:
// two documents with the same logical content always hash to the same
// token, regardless of key order, whitespace or Unicode normalization form.
//
// # Rules
//
//   - Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//   - No HTML escaping, U+2028/U+2029 emitted literally
//   - Strings NFC normalized
//   - Integers only; a number with a fraction or exponent is rejected
//
// Hashes use SHA-256 with domain separation: SHA256(domain + 0x00 + data).
package canon
