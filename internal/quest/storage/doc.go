// Package storage defines the persistence interfaces for quest records.
//
// The contracts here are a thin typed layer over a durable collection:
// create, fetch, filtered listing, the completion transition, and delete.
// Implementations live in subpackages (e.g. sqlite).
//
// # Error Types
//
//   - ErrNotFound: Indicates a requested record is missing.
//   - ErrAlreadyExists: Indicates an id collision on create.
package storage
