/*
Package ports defines the driven ports (interfaces) of the HELIX orchestrator.

These interfaces decouple the session controller and the reconciler from concrete
storage and transport, so the same core runs against Redis or memory caches and
against the real realtime runtime or a test double.

# Key Interfaces

  - CacheStore: holds the last fetched snapshot of each backend collection.
  - Runtime: opens a realtime conversation session with a credential, instructions and tools.
  - RuntimeSession: an open session that accepts tool results and reports its termination.
*/
package ports
