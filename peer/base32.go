// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019-2022 Bernd Fix  >Y<
//
// gnunet-go is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// gnunet-go is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package peer

import (
	"errors"
	"strings"
)

// Crockford base32 encoding for ID.String()/ParseID. This package is the
// only consumer of the codec, so it lives here rather than in a general
// util package: encodeID32/decodeID32 work in terms of a fixed 32-byte
// peer ID rather than an arbitrary-size buffer.
//
// A binary array is viewed as a consecutive stream of bits from left to
// right, bytes ascending, bits MSB to LSB. Encoding partitions the stream
// into 5-bit chunks (the last right-padded with 0's if needed) and maps
// each chunk to a character per crockfordAlphabet. Decoding reverses
// this, additionally accepting 'O'/'I'/'L' as digit look-alikes and 'U'
// as the checksum character, per Crockford's spec.
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	// errInvalidID32 signals a peer ID string with an invalid character.
	errInvalidID32 = errors.New("peer: invalid base32 id encoding")
	// errID32Overflow signals a peer ID string that decodes to more
	// bytes than the requested output size.
	errID32Overflow = errors.New("peer: base32 id decodes too long")
)

// encodeID32 encodes a peer ID's raw bytes into its base32 string form.
func encodeID32(data []byte) string {
	size, pos, bits, n := len(data), 0, 0, 0
	out := ""
	for {
		if n < 5 {
			if pos < size {
				bits = (bits << 8) | (int(data[pos]) & 0xFF)
				pos++
				n += 8
			} else if n > 0 {
				bits <<= uint(5 - n)
				n = 5
			} else {
				break
			}
		}
		out += string(crockfordAlphabet[(bits>>uint(n-5))&0x1F])
		n -= 5
	}
	return out
}

// decodeID32 decodes a base32 peer ID string into exactly size bytes,
// zero-filling the trailing bytes if the decoded bit stream is shorter.
func decodeID32(s string, size int) ([]byte, error) {
	strlen := len(s)
	out := make([]byte, size)
	rpos, wpos, n, bits := 0, 0, 0, 0
	for {
		if n < 8 {
			if rpos < strlen {
				c := rune(s[rpos])
				rpos++
				v := strings.IndexRune(crockfordAlphabet, c)
				if v == -1 {
					switch c {
					case 'O':
						v = 0
					case 'I', 'L':
						v = 1
					case 'U':
						v = 27
					default:
						return nil, errInvalidID32
					}
				}
				bits = (bits << 5) | (v & 0x1F)
				n += 5
			} else {
				if wpos < size {
					out[wpos] = byte(bits & ((1 << uint(n+1)) - 1))
					wpos++
					for i := wpos; i < size; i++ {
						out[i] = 0
					}
				}
				break
			}
		} else {
			if wpos < size {
				out[wpos] = byte((bits >> uint(n-8)) & 0xFF)
				wpos++
				n -= 8
			} else {
				return nil, errID32Overflow
			}
		}
	}
	return out, nil
}
