/*
Package domain contains the core domain models for the HELIX voice orchestrator.

It defines the entities exchanged between the realtime session, the tool catalogue
and the backend: tool calls and results, the session state machine values, the
backend resource rows and the typed failure taxonomy. This package is kept pure and
free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - SessionState: idle, connecting, connected, disconnecting or error.
  - SessionCredential: short-lived bearer token authorizing one realtime session.
  - ToolCall / ToolResult: one invocation requested by the remote assistant and its outcome.
  - Tension, BaselineField, CalendarEvent, Slot: backend-owned rows mirrored in the read cache.
  - Error: a failure tagged with a Kind from the error taxonomy.
*/
package domain
