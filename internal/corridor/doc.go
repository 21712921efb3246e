// Package corridor owns the emergency-corridor cascade engine.
//
// Responsibilities: translating accepted detections into timed
// per-intersection signal transitions, holding current signal state,
// and recording incident history with aggregate stats.
// Key types: Scheduler, Registry, Ledger, Detection, Incident.
//
// The package holds no persistent state and performs no I/O; HTTP and
// MQTT collaborators live in internal/api and internal/ingest.
package corridor
