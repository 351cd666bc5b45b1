// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rvm

import "testing"

func TestParseAddress_AcceptsBothHexForms(t *testing.T) {
	want := Address{0x12, 0x34}
	want[19] = 0xff

	for _, input := range []string{
		"0x12340000000000000000000000000000000000ff",
		"12340000000000000000000000000000000000ff",
	} {
		got, err := ParseAddress(input)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", input, err)
		}
		if want != got {
			t.Errorf("expected address %v, got %v", want, got)
		}
	}
}

func TestParseAddress_RejectsWrongLengthsAndGarbage(t *testing.T) {
	for _, input := range []string{
		"",
		"0x",
		"0x1234",
		"0x12340000000000000000000000000000000000ff00", // too long
		"0xzz340000000000000000000000000000000000ff",
	} {
		if _, err := ParseAddress(input); err == nil {
			t.Errorf("expected %q to be rejected", input)
		}
	}
}

func TestAddress_TextRoundTrip(t *testing.T) {
	addr := Address{0xab, 0xcd}
	text, err := addr.MarshalText()
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var decoded Address
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("failed to unmarshal %q: %v", text, err)
	}
	if addr != decoded {
		t.Errorf("expected %v, got %v", addr, decoded)
	}
}

func TestSizeInWords(t *testing.T) {
	tests := map[uint64]uint64{
		0:  0,
		1:  1,
		31: 1,
		32: 1,
		33: 2,
		64: 2,
		65: 3,
	}
	for size, want := range tests {
		if got := SizeInWords(size); want != got {
			t.Errorf("expected SizeInWords(%d) to be %d, got %d", size, want, got)
		}
	}
}
