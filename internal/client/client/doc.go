// Package client contains the client-side building blocks of the gophauth CLI.
//
// # Overview
//
//  1. The Client interface describes the calls the CLI makes against the
//     server: Register, Login, Refresh, Me, Logout, ChangePassword,
//     EmailExists and Ping.
//  2. HTTPClient implements it over the JSON API. The current pair lives in
//     a TokenStore; when an authorised call fails with code "expired" the
//     client rotates once with the cached renewal token and retries.
//  3. InitDatabase and RunMigrations open the local SQLite cache and apply
//     the embedded goose migrations.
//
// # Error Handling
//
// Server error codes are mapped back onto the sentinels in package common
// (ErrExpired, ErrorUnauthorized, ErrAlreadyExists, ...). Transport failures
// and 5xx answers without a known code wrap ErrUnavailable. ErrNotLoggedIn is
// returned when an authorised call is made with an empty cache.
package client
