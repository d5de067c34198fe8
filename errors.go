// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"errors"
	"fmt"
)

var (
	// ErrParseURL indicates that the input string lacks a host segment.
	ErrParseURL = errors.New("URL parsing error")

	// ErrDNSTransactionIDMismatch indicates that a response does not echo our query ID.
	ErrDNSTransactionIDMismatch = errors.New("transaction id mismatch")

	// ErrDNSNotARecord indicates that the answer does not contain an A record.
	ErrDNSNotARecord = errors.New("answer is not an A record")

	// ErrDNSTruncatedResponse indicates that a response ends before a required field.
	ErrDNSTruncatedResponse = errors.New("truncated response")

	// ErrDNSMalformedResponse indicates an invalid name encoding (e.g., a pointer loop).
	ErrDNSMalformedResponse = errors.New("malformed response")

	// ErrDNSResponseCode indicates that the server answered with a non-zero RCODE.
	ErrDNSResponseCode = errors.New("unexpected response code")

	// ErrResponseParse indicates an empty response or one without header/body separator.
	ErrResponseParse = errors.New("response parsing error")

	// ErrTimeout indicates that a blocking operation was abandoned because
	// the context was done before it completed.
	ErrTimeout = errors.New("operation timed out")

	// ErrSessionState indicates a [*ClientSession] method invoked in the wrong state.
	ErrSessionState = errors.New("invalid session state")
)

// DNSResolveError is returned by [*ResolveFunc] for any resolution failure.
//
// Err is the specific cause: one of the ErrDNS* values, a transport
// error such as [*BindError], or an error wrapping [ErrTimeout].
type DNSResolveError struct {
	Hostname string
	Err      error
}

func (e *DNSResolveError) Error() string {
	return fmt.Sprintf("could not resolve %q: %s", e.Hostname, e.Err.Error())
}

func (e *DNSResolveError) Unwrap() error {
	return e.Err
}

// StreamConnectionError is a transport-level failure to connect a [*ClientSession].
type StreamConnectionError struct {
	Address string
	Err     error
}

func (e *StreamConnectionError) Error() string {
	return fmt.Sprintf("error establishing connection to %s: %s", e.Address, e.Detail())
}

// Detail returns the underlying cause as diagnostic text.
func (e *StreamConnectionError) Detail() string {
	return e.Err.Error()
}

func (e *StreamConnectionError) Unwrap() error {
	return e.Err
}

// BindError indicates that a datagram channel could not acquire its local endpoint.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %s", e.Address, e.Err.Error())
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// ConnectError indicates that a datagram channel could not be associated with a peer.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s", e.Address, e.Err.Error())
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// WriteError indicates a failed or partial write of a datagram or request.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "write: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError indicates a transport failure while receiving a datagram or response.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return "read: " + e.Err.Error()
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// errPeerNotSet is returned when sending on a channel without a peer.
var errPeerNotSet = errors.New("datagram channel has no peer")
