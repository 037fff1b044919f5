// Package client contains the CLI's side of the wire: the Client contract,
// its HTTP implementation against the server's JSON API, and the bootstrap
// of the local SQLite database.
//
// Transport failures surface as ErrUnavailable; 401 and 403 answers as
// ErrUnauthorized and ErrForbidden, with the server's message attached.
package client
