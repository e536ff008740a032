// Package jobstore persists batch jobs in SQLite and derives their aggregate
// status from per-file item states.
//
// Each job is one row holding the full Job document as JSON; items are nested
// sub-documents, never separately keyed. Item updates are merge patches
// applied inside an immediate transaction so sibling workers updating
// different files of the same job cannot lose writes. Job status and message
// are always recomputed from the item set after a patch, never stored
// independently of it.
//
// Treat this package as the single source of truth for job semantics; when
// fields change, update schema.sql and bump schemaVersion.
package jobstore
