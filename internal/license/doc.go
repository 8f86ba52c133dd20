// Package license implements the core binding engine of the Solunex
// license server: per-device activation with idempotent re-activation and
// a hard device cap.
//
// # Architecture Overview
//
// The package consists of three components:
//
//	- Evaluator: pure status evaluation (revoked/expired/stored status)
//	- Engine: the binding decision procedure over a RecordStore, with
//	  optimistic-concurrency retries
//	- Metrics: OpenTelemetry instruments for activations and checks
//
// # Binding Decision Flow
//
// TryBind evaluates in strict order:
//
//	1. Revoked license: denied, regardless of roster state
//	2. Expired license (computed from expires_at): denied
//	3. Device already in roster: idempotent success, no write
//	4. Roster at max_devices: denied
//	5. Otherwise: append device and persist via compare-and-swap
//
// A compare-and-swap failure means another writer won the race; the engine
// re-reads the record and re-runs the whole decision, up to a bounded
// number of attempts. Exhaustion is an infrastructure error, distinct from
// every license verdict.
package license
