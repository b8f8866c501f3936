// Package repository defines error values that are reused across
// multiple repositories.  These sentinel values let higher layers such
// as services and handlers distinguish failure scenarios without
// inspecting driver-specific errors.  Absent rows are reported with
// sql.ErrNoRows, matching database/sql conventions.
package repository

import "errors"

// ErrConflict is returned when a conditional update finds the row in a
// different state than expected, e.g. a compare-and-set on a slot
// status that another request won first.  Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
