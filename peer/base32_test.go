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
	"bytes"
	"crypto/rand"
	"testing"
)

// known (binary, base32) pairs at input lengths 1, 2, 4, 8, 16 and 32
// bytes, to pin the encoding against regressions in chunking/padding.
var base32Vectors = []struct {
	bin []byte
	str string
}{
	{[]byte{0xD4}, "TG"},
	{[]byte{0x78, 0xD3}, "F39G"},
	{[]byte{0x43, 0xA4, 0x59, 0x57}, "8EJ5JNR"},
	{[]byte{0x59, 0x40, 0xB3, 0x2D, 0xB8, 0x86, 0x61, 0xC2}, "B50B6BDRGSGW4"},
	{[]byte{
		0xF9, 0x7F, 0x85, 0x6D, 0x8D, 0x8D, 0x65, 0x91,
		0x50, 0x3A, 0x2F, 0x36, 0x9F, 0x63, 0x01, 0x45,
	}, "Z5ZRAVCDHNJS2M1T5WV9YRR18M"},
	{[]byte{
		0xC0, 0x78, 0x05, 0x04, 0xB8, 0xE2, 0x4A, 0xA5,
		0x61, 0x82, 0xCE, 0xCC, 0xE3, 0xCA, 0x53, 0x01,
		0x67, 0x5F, 0xA3, 0x05, 0xA9, 0x27, 0xC5, 0xE2,
		0x6B, 0xB5, 0xB5, 0x86, 0xAB, 0x84, 0x32, 0x6C,
	}, "R1W0A15RW95AARC2SV6E7JJK05KNZ8R5N4KWBRKBPPTRDAW469P0"},
}

func TestID32Vectors(t *testing.T) {
	for _, v := range base32Vectors {
		s := encodeID32(v.bin)
		if s != v.str {
			t.Fatalf("encode mismatch: got %q want %q", s, v.str)
		}
		back, err := decodeID32(v.str, len(v.bin))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(back, v.bin) {
			t.Fatalf("decode mismatch: got %x want %x", back, v.bin)
		}
	}
}

// TestID32RandomRoundTrip exercises the codec at the module's one real
// input size: a full 32-byte peer ID.
func TestID32RandomRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	for i := 0; i < 100; i++ {
		if _, err := rand.Read(buf); err != nil {
			t.Fatal(err)
		}
		s := encodeID32(buf)
		back, err := decodeID32(s, 32)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buf, back) {
			t.Fatalf("round-trip mismatch for %x", buf)
		}
	}
}

// TestID32LookAlikes checks Crockford's look-alike and checksum-digit
// tolerance: 'O'/'I'/'L' decode as digits, 'U' as the checksum value,
// and a genuinely invalid character is rejected.
func TestID32LookAlikes(t *testing.T) {
	i1 := []byte{0x59, 0x40, 0xB3, 0x2D, 0xB8, 0x86, 0x61, 0xC2}
	o1 := "B50B6BDRGSGW4"
	if encodeID32(i1) != o1 {
		t.Fatal("encode mismatch")
	}
	if got, err := decodeID32(o1, 8); err != nil || !bytes.Equal(got, i1) {
		t.Fatalf("decode mismatch: got=%x err=%v", got, err)
	}

	i2 := []byte("Hello World")
	o2 := "91JPRV3F41BPYWKCCG"
	oLookAlike := "91JPRU3F4IBPYWKCCG" // 'U' and 'I' substituted for digits
	oInvalid := "91JPR+3F4!BPYWKCCG"   // '+'/'!' are not valid characters

	if encodeID32(i2) != o2 {
		t.Fatal("encode mismatch")
	}
	if got, err := decodeID32(o2, 11); err != nil || !bytes.Equal(got, i2) {
		t.Fatalf("decode mismatch: got=%x err=%v", got, err)
	}
	if got, err := decodeID32(oLookAlike, 11); err != nil || !bytes.Equal(got, i2) {
		t.Fatalf("look-alike decode mismatch: got=%x err=%v", got, err)
	}
	if _, err := decodeID32(oInvalid, 11); err == nil {
		t.Fatal("expected an error decoding an invalid character")
	}
}
