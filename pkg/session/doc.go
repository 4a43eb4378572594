/*
Package session implements the lifecycle of a single realtime conversation.

A Controller owns the only session state of a client. It exchanges a credential,
builds the tool catalogue, opens the runtime session and routes every tool call the
runtime issues through the catalogue. Transitions are guarded so that concurrent
Connect calls cannot both start a session.

	idle -> connecting -> connected -> disconnecting -> idle
	connecting -> error (credential or handshake failure)
	connected -> idle (remote termination)
*/
package session
