// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"encoding/binary"
	"net/netip"
	"strings"
)

const (
	// dnsHeaderSize is the size of the fixed DNS message header.
	dnsHeaderSize = 12

	// dnsFlagsQuery is a standard query with recursion desired.
	dnsFlagsQuery = 0x0100

	// dnsTypeA is the A record type.
	dnsTypeA = 0x0001

	// dnsClassIN is the Internet class.
	dnsClassIN = 0x0001
)

// DNSQuery is an encoded query ready to be sent.
//
// Build using [BuildDNSQuery] or [NewDNSQuery]. The TransactionID must
// be echoed by the matching response.
type DNSQuery struct {
	// TransactionID is the ID stored in the first two bytes of Message.
	TransactionID uint16

	// Message is the wire-format query.
	Message []byte

	// Hostname is the name being queried.
	Hostname string
}

// BuildDNSQuery encodes an A query for hostname using a random transaction ID.
//
// Each call draws an independent ID so that a reply can be matched
// to its query. Uniqueness across concurrent queries is not tracked.
func BuildDNSQuery(hostname string) *DNSQuery {
	return NewDNSQuery(hostname, randomTransactionID())
}

// NewDNSQuery is like [BuildDNSQuery] with an explicit transaction ID.
func NewDNSQuery(hostname string, txid uint16) *DNSQuery {
	return &DNSQuery{
		TransactionID: txid,
		Message:       EncodeDNSQuery(hostname, txid),
		Hostname:      hostname,
	}
}

// EncodeDNSQuery returns the wire format of an A/IN query for hostname.
//
// Labels must be at most 63 bytes long: this precondition is not checked
// here and [*ResolveFunc] validates names before encoding. A single
// trailing dot (fully qualified form) is ignored.
func EncodeDNSQuery(hostname string, txid uint16) []byte {
	hostname = strings.TrimSuffix(hostname, ".")
	msg := make([]byte, 0, dnsHeaderSize+len(hostname)+2+4)

	// header
	msg = binary.BigEndian.AppendUint16(msg, txid)
	msg = binary.BigEndian.AppendUint16(msg, dnsFlagsQuery)
	msg = binary.BigEndian.AppendUint16(msg, 1) // QDCOUNT
	msg = binary.BigEndian.AppendUint16(msg, 0) // ANCOUNT
	msg = binary.BigEndian.AppendUint16(msg, 0) // NSCOUNT
	msg = binary.BigEndian.AppendUint16(msg, 0) // ARCOUNT

	// question
	for label := range strings.SplitSeq(hostname, ".") {
		msg = append(msg, byte(len(label)))
		msg = append(msg, label...)
	}
	msg = append(msg, 0)
	msg = binary.BigEndian.AppendUint16(msg, dnsTypeA)
	msg = binary.BigEndian.AppendUint16(msg, dnsClassIN)
	return msg
}

// ParseDNSResponse extracts the address using fixed offsets.
//
// The answer record must immediately follow the only question and start
// with a 2-byte compression pointer. Under this assumption the question
// occupies hostnameLen+2 bytes of name plus QTYPE and QCLASS, and the
// answer carries pointer, TYPE, CLASS, TTL, and RDLENGTH before RDATA.
//
// Prefer [DecodeDNSResponse], which does not depend on the name length
// and tolerates records preceding the A record.
func ParseDNSResponse(buf []byte, txid uint16, hostnameLen int) (netip.Addr, error) {
	if len(buf) < 2 {
		return netip.Addr{}, ErrDNSTruncatedResponse
	}
	if binary.BigEndian.Uint16(buf[0:2]) != txid {
		return netip.Addr{}, ErrDNSTransactionIDMismatch
	}

	answer := dnsHeaderSize + hostnameLen + 2 + 4
	typeOffset := answer + 2
	rdataOffset := answer + 12
	if hostnameLen < 0 || len(buf) < rdataOffset+4 {
		return netip.Addr{}, ErrDNSTruncatedResponse
	}

	if binary.BigEndian.Uint16(buf[typeOffset:typeOffset+2]) != dnsTypeA {
		return netip.Addr{}, ErrDNSNotARecord
	}
	return netip.AddrFrom4([4]byte(buf[rdataOffset : rdataOffset+4])), nil
}
