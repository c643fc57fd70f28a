package version

import (
	"errors"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
			if v.String() != tt.input {
				t.Errorf("String() = %q, want %q", v.String(), tt.input)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "1", "abc", "1.0.0", "1.x", "-1.0", ".1", "1."} {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	v1 := ProtocolVersion{Major: 1, Minor: 0}
	if !v1.Compatible(ProtocolVersion{Major: 1, Minor: 4}) {
		t.Error("same major should be compatible")
	}
	if v1.Compatible(ProtocolVersion{Major: 2, Minor: 0}) {
		t.Error("different major should not be compatible")
	}
}

func TestSubprotocol(t *testing.T) {
	if got := Subprotocol(1); got != "easyorder.v1" {
		t.Errorf("Subprotocol(1) = %q", got)
	}

	major, err := MajorFromSubprotocol("easyorder.v3")
	if err != nil || major != 3 {
		t.Errorf("MajorFromSubprotocol = %d, %v", major, err)
	}

	for _, bad := range []string{"chat/1", "easyorder.v", "easyorder.vx"} {
		if _, err := MajorFromSubprotocol(bad); err == nil {
			t.Errorf("MajorFromSubprotocol(%q) should return error", bad)
		}
	}

	supported := SupportedSubprotocols()
	if len(supported) != 1 || supported[0] != "easyorder.v1" {
		t.Errorf("SupportedSubprotocols() = %v", supported)
	}
}

func TestCheckSubprotocol(t *testing.T) {
	if err := CheckSubprotocol(""); err != nil {
		t.Errorf("empty subprotocol: %v", err)
	}
	if err := CheckSubprotocol("easyorder.v1"); err != nil {
		t.Errorf("current subprotocol: %v", err)
	}
	if err := CheckSubprotocol("easyorder.v2"); !errors.Is(err, ErrIncompatible) {
		t.Errorf("easyorder.v2: got %v, want ErrIncompatible", err)
	}
	if err := CheckSubprotocol("chat"); err == nil {
		t.Error("foreign subprotocol should return error")
	}
}

func TestCheckAdvertised(t *testing.T) {
	tests := []struct {
		input        string
		wantErr      bool
		incompatible bool
	}{
		{"", false, false},
		{"1.0", false, false},
		{"1.7", false, false},
		{"2.0", true, true},
		{"one", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := CheckAdvertised(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckAdvertised(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if errors.Is(err, ErrIncompatible) != tt.incompatible {
				t.Errorf("CheckAdvertised(%q) incompatible = %v, want %v", tt.input, errors.Is(err, ErrIncompatible), tt.incompatible)
			}
		})
	}
}
