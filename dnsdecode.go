// SPDX-License-Identifier: GPL-3.0-or-later

package stubfetch

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// dnsMaxPointerHops bounds compression pointer chasing.
const dnsMaxPointerHops = 16

// DecodeDNSResponse returns the address in the first A/IN answer of buf.
//
// Unlike [ParseDNSResponse], it walks the question and answer sections,
// following compression pointers, so it does not depend on how the
// server re-encodes the question name and it skips records (e.g., a
// CNAME) preceding the A record. CNAME chains are not followed: the
// A record must be in the answer section.
//
// Errors: [ErrDNSTransactionIDMismatch], [ErrDNSResponseCode] (wrapped,
// with the code), [ErrDNSNotARecord], [ErrDNSTruncatedResponse], and
// [ErrDNSMalformedResponse].
func DecodeDNSResponse(buf []byte, txid uint16) (netip.Addr, error) {
	r := &dnsReader{buf: buf}

	id, err := r.uint16()
	if err != nil {
		return netip.Addr{}, err
	}
	if id != txid {
		return netip.Addr{}, ErrDNSTransactionIDMismatch
	}
	flags, err := r.uint16()
	if err != nil {
		return netip.Addr{}, err
	}
	var counts [4]uint16
	for idx := range counts {
		if counts[idx], err = r.uint16(); err != nil {
			return netip.Addr{}, err
		}
	}
	if rcode := flags & 0x000f; rcode != 0 {
		return netip.Addr{}, fmt.Errorf("%w: %d", ErrDNSResponseCode, rcode)
	}

	qdcount, ancount := counts[0], counts[1]
	for range qdcount {
		if err := r.skipName(); err != nil {
			return netip.Addr{}, err
		}
		if err := r.skip(4); err != nil { // QTYPE, QCLASS
			return netip.Addr{}, err
		}
	}

	for range ancount {
		if err := r.skipName(); err != nil {
			return netip.Addr{}, err
		}
		rrtype, err := r.uint16()
		if err != nil {
			return netip.Addr{}, err
		}
		rrclass, err := r.uint16()
		if err != nil {
			return netip.Addr{}, err
		}
		if err := r.skip(4); err != nil { // TTL
			return netip.Addr{}, err
		}
		rdlength, err := r.uint16()
		if err != nil {
			return netip.Addr{}, err
		}
		rdata, err := r.bytes(int(rdlength))
		if err != nil {
			return netip.Addr{}, err
		}
		if rrtype == dnsTypeA && rrclass == dnsClassIN && len(rdata) == 4 {
			return netip.AddrFrom4([4]byte(rdata)), nil
		}
	}
	return netip.Addr{}, ErrDNSNotARecord
}

// dnsReader reads a DNS message with bounds checking.
type dnsReader struct {
	buf []byte
	off int
}

func (r *dnsReader) bytes(count int) ([]byte, error) {
	if count < 0 || r.off+count > len(r.buf) {
		return nil, ErrDNSTruncatedResponse
	}
	data := r.buf[r.off : r.off+count]
	r.off += count
	return data, nil
}

func (r *dnsReader) uint16() (uint16, error) {
	data, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}

func (r *dnsReader) skip(count int) error {
	_, err := r.bytes(count)
	return err
}

// skipName advances past a possibly compressed name.
//
// The name's labels are validated but not returned. After a pointer,
// reading continues right after the pointer, not at its target.
func (r *dnsReader) skipName() error {
	off, end, hops := r.off, -1, 0
	for {
		if off >= len(r.buf) {
			return ErrDNSTruncatedResponse
		}
		length := int(r.buf[off])
		switch length & 0xc0 {
		case 0x00:
			if length == 0 {
				if end < 0 {
					end = off + 1
				}
				r.off = end
				return nil
			}
			off += 1 + length
		case 0xc0:
			if off+2 > len(r.buf) {
				return ErrDNSTruncatedResponse
			}
			if end < 0 {
				end = off + 2
			}
			if hops++; hops > dnsMaxPointerHops {
				return ErrDNSMalformedResponse
			}
			off = int(binary.BigEndian.Uint16(r.buf[off:off+2]) & 0x3fff)
		default:
			return ErrDNSMalformedResponse
		}
	}
}
