// Package version provides protocol version parsing, comparison, and
// WebSocket subprotocol helpers.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Current is the wire protocol version implemented by this module.
const Current = "1.0"

// subprotocolPrefix names the WebSocket subprotocol family: "easyorder.vN".
const subprotocolPrefix = "easyorder.v"

// ErrIncompatible is returned when a peer speaks a different major version.
var ErrIncompatible = errors.New("incompatible protocol version")

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	majorStr, minorStr, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minorStr, ".") {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(majorStr, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(minorStr, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// MustCurrent returns the parsed Current version.
func MustCurrent() ProtocolVersion {
	v, err := Parse(Current)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Subprotocol returns the WebSocket subprotocol for a major version.
func Subprotocol(major uint16) string {
	return subprotocolPrefix + strconv.FormatUint(uint64(major), 10)
}

// MajorFromSubprotocol extracts the major version from a subprotocol name.
func MajorFromSubprotocol(name string) (uint16, error) {
	suffix, ok := strings.CutPrefix(name, subprotocolPrefix)
	if !ok {
		return 0, fmt.Errorf("not an easyorder subprotocol: %q", name)
	}
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in subprotocol: %q", name)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in subprotocol %q: %w", name, err)
	}
	return uint16(major), nil
}

// SupportedSubprotocols returns the subprotocols offered when dialing and
// accepted when serving. Currently only major version 1.
func SupportedSubprotocols() []string {
	return []string{Subprotocol(MustCurrent().Major)}
}

// CheckSubprotocol verifies the subprotocol a server selected. An empty name
// means the server did not negotiate one and is accepted.
func CheckSubprotocol(name string) error {
	if name == "" {
		return nil
	}
	major, err := MajorFromSubprotocol(name)
	if err != nil {
		return err
	}
	if major != MustCurrent().Major {
		return fmt.Errorf("%w: server selected %s", ErrIncompatible, name)
	}
	return nil
}

// CheckAdvertised verifies a version string advertised over mDNS. An empty
// string is accepted.
func CheckAdvertised(s string) error {
	if s == "" {
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	if !MustCurrent().Compatible(v) {
		return fmt.Errorf("%w: server advertises %s", ErrIncompatible, s)
	}
	return nil
}
