/*
Package helix orchestrates realtime voice sessions that act on a personal backend
through tool calls.

A session exchanges a short-lived credential with the core backend, opens a realtime
conversation with an external speech runtime, and advertises a catalogue of tools
(calendar, tensions, baseline fields). Whenever the runtime decides to act it invokes a
tool by name; the orchestrator validates the arguments, calls the backend and returns
the result as the tool output. Successful mutations trigger a refresh of the affected
cached collection so displayed state follows backend truth.

# Usage

	h, err := helix.New(
		helix.WithCoreURL("http://localhost:8000"),
		helix.WithTranscriptHandler(func(item domain.ConversationItem) {
			fmt.Println(item.Text)
		}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer h.Close()

	if err := h.Controller().Connect(ctx); err != nil {
		log.Printf("connect failed: %v (state %s)", err, h.Controller().State())
	}

The same catalogue is reachable without a voice session through Handler (local HTTP
control API and signaling proxy) and MCPServer.
*/
package helix
