/*
Package ports defines the driven ports (interfaces) for the storewizard engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, validators, and notification
surfaces.

# Key Interfaces

  - KVStore: client-side persistent key-value store used by autosave.
  - PersistenceService: creates the primary record and its dependents.
  - RemoteValidator: scoped uniqueness/consistency checks.
  - TemplateProvider: read-only source of reusable templates.
  - Notifier: fire-and-forget user-visible messages.
  - DistributedLocker: coordinates single-editor access across replicas.
*/
package ports
