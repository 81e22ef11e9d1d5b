// Package cli provides the Anonify command-line client.
//
// It wires configuration, local storage, the session guard, the API client
// and the chat workflow engine behind a cobra command tree. Running the
// binary without a subcommand starts an interactive REPL: prompt for
// credentials, start a background health watcher, then execute user
// commands. "open <id>" enters a chat, where plain lines are sent as text
// turns and /attach stages an image for redaction.
//
// Whenever the session ends (logout, 401 from the server or an expired
// token) the client drops back to the login prompt.
package cli
