// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, the local token cache and the API client. With a
// command argument (e.g. "gophauth-cli me") a single command runs and the
// program exits; without one an interactive loop starts, and a background
// watcher keeps an online/offline marker in the prompt.
//
// Commands: register, login, refresh, me, password, logout, status, ping.
// Passwords are read from the terminal without echo.
package cli
