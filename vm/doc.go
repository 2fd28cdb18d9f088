// Package vm implements the oosh object runtime.
//
// This package contains:
//   - Object identity and per-object attribute storage
//   - Class, trait and decorator declarations resolved into dispatch tables
//   - Method dispatch with a context stack for inner and parent calls
//   - Construction, cloning and destruction of objects
//   - Exceptions with resumable handlers
//   - SQLite persistence and CBOR object images
package vm
