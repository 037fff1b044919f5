// Package cli provides the interactive VolunteerHub command-line client.
//
// It wires configuration, the local session database, the HTTP API client
// and a small REPL. A login survives restarts: the token is kept in SQLite
// until logout, or until the server stops accepting it.
//
// Commands: register, login, whoami, logout, help, exit.
package cli
