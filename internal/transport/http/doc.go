// Package http contains the HTTP handlers of the license server.
//
// The license surface has two lanes. The soft lane (check, validate)
// always answers 200 with a shaped verdict so clients can poll without
// error handling. The hard lane (activate) maps denials to HTTP status
// codes with RFC 7807 problem bodies whose detail strings are part of the
// public contract.
package http
