/*
Package observability provides monitoring for the voice orchestrator.

It includes Prometheus metrics fed by lifecycle hooks (session transitions, tool calls,
cache refreshes) and by the realtime adapter, plus structured-logging hooks and a way
to compose several hook sets into one.
*/
package observability
