// Package core provides the business logic for the MAC address inventory.
//
// This package holds all domain logic independent of any transport. The web
// handlers and the operator CLI both drive it through [Service]; tests drive
// it with in-memory stores.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Catalog: the sites, areas and device types a device is validated
//     against. The same catalog feeds validation, template drop-downs and the
//     dashboard.
//   - Codec: [NormalizeMAC] canonicalizes a MAC address to AA:BB:CC:DD:EE:FF.
//   - Import: [Importer] maps a workbook's header row to fields, validates
//     every row and persists the valid ones, reporting each row as inserted,
//     duplicate or failed.
//   - Stores: [DeviceStore] and [AuditStore] abstract persistence;
//     [PostgresStore] implements both.
//   - Audit: [AuditRecorder] writes one entry per mutation or import run.
//
// # Import Flow
//
// An import run never holds a global lock. Uniqueness of MAC addresses is
// enforced by the database; a row that loses an insert race is re-read and
// reported as a duplicate of the winner.
//
//  1. Client calls [Service.ImportDevices] with the workbook bytes
//  2. [ImportLimiter] admits the run or fails with [ErrTooManyImports]
//  3. The header row is mapped; a missing required column fails the whole
//     run with a [StructuralError]
//  4. Valid rows are persisted by a bounded worker pool
//  5. One IMPORT audit entry summarizes the run
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
// Each error category has a code for support reference:
//
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL004: Validation errors (formats, catalog values)
//   - FILE001-FILE003: File errors (size, format, empty)
//   - IMP001-IMP003: Import errors (busy, timeout, missing columns)
//
// Audit failures are logged and never change the outcome of the operation
// they describe.
package core
