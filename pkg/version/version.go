// Package version provides the tool version and remote probe protocol
// version parsing, comparison and negotiation helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Tool is the release version of the ccmobs binaries.
// Overridden at build time with -ldflags "-X .../pkg/version.Tool=v1.2.3".
var Tool = "dev"

// Current is the remote probe protocol version implemented by this library.
const Current = "1.0"

// ProtocolName prefixes protocol identifiers: "ccmobs/1", "ccmobs/1.0".
const ProtocolName = "ccmobs"

// SpecVersion represents a parsed "major.minor" protocol version.
type SpecVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (SpecVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return SpecVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return SpecVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return SpecVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// MustCurrent returns the parsed Current version.
func MustCurrent() SpecVersion {
	v, err := Parse(Current)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v SpecVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Protocol returns the protocol identifier sent in a hello: "ccmobs/1.0".
func (v SpecVersion) Protocol() string {
	return ProtocolName + "/" + v.String()
}

// Compatible returns true if the other version has the same major version.
func (v SpecVersion) Compatible(other SpecVersion) bool {
	return v.Major == other.Major
}

// ParseProtocol parses a protocol identifier. Both "ccmobs/1" and
// "ccmobs/1.2" are accepted; a missing minor component is zero.
func ParseProtocol(s string) (SpecVersion, error) {
	prefix := ProtocolName + "/"
	if !strings.HasPrefix(s, prefix) {
		return SpecVersion{}, fmt.Errorf("not a %s protocol: %q", ProtocolName, s)
	}

	suffix := s[len(prefix):]
	if suffix == "" {
		return SpecVersion{}, fmt.Errorf("empty version in protocol %q", s)
	}
	if !strings.Contains(suffix, ".") {
		suffix += ".0"
	}
	v, err := Parse(suffix)
	if err != nil {
		return SpecVersion{}, fmt.Errorf("protocol %q: %w", s, err)
	}
	return v, nil
}

// Negotiate checks a peer's protocol identifier against Current.
// It returns the peer version when the majors match.
func Negotiate(peer string) (SpecVersion, error) {
	v, err := ParseProtocol(peer)
	if err != nil {
		return SpecVersion{}, err
	}
	current := MustCurrent()
	if !current.Compatible(v) {
		return v, fmt.Errorf("protocol %s incompatible with %s", v.Protocol(), current.Protocol())
	}
	return v, nil
}
