// Package codec defines the persisted layout of the session table and its
// encoding.
//
// A table is stored as one JSON object canonicalised per RFC 8785 (JCS), so
// equal tables always produce identical bytes and the sha256 of the blob is a
// stable checksum. Blobs are validated against an embedded JSON schema in both
// directions. Counters and tids must therefore fit in 53 bits.
//
// Session state is not persisted: a decoded session always starts undefined
// and has to be opened again.
package codec
