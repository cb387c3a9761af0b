package dap

import (
	"fmt"
	"strconv"
	"strings"
)

// Version cutoff below which peers use legacy (markerless) sequence framing.
const (
	legacyCutoffMajor = 2
	legacyCutoffMinor = 15
)

// DefaultVersion is the protocol version assumed when no peer is given.
var DefaultVersion = ServerVersion{Major: 3, Minor: 2}

// ServerVersion is the protocol version announced by a DAP server.
type ServerVersion struct {
	Major int
	Minor int
}

// ParseServerVersion parses version strings such as "DODS/2.16",
// "dods/3.2", "opendap/3.7.10" or a bare "3.2". Components after the minor
// version are ignored.
func ParseServerVersion(s string) (ServerVersion, error) {
	text := strings.TrimSpace(s)
	if i := strings.LastIndexByte(text, '/'); i >= 0 {
		text = text[i+1:]
	}
	parts := strings.Split(text, ".")
	if len(parts) < 2 {
		return ServerVersion{}, fmt.Errorf("dap: invalid server version %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return ServerVersion{}, fmt.Errorf("dap: invalid major version in %q", s)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return ServerVersion{}, fmt.Errorf("dap: invalid minor version in %q", s)
	}
	return ServerVersion{Major: major, Minor: minor}, nil
}

// Legacy reports whether the version predates sequence markers.
func (v ServerVersion) Legacy() bool {
	return v.Major < legacyCutoffMajor || (v.Major == legacyCutoffMajor && v.Minor < legacyCutoffMinor)
}

func (v ServerVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Peer describes the other end of a connection. The sequence framing is
// chosen once, here, and reused for every decode through this Peer.
//
// Thread-safety: a Peer is immutable and safe for concurrent use.
type Peer struct {
	version ServerVersion
	framing framing
}

// NewPeer creates a Peer for the given server version.
func NewPeer(v ServerVersion) *Peer {
	p := &Peer{version: v, framing: currentFraming{}}
	if v.Legacy() {
		p.framing = legacyFraming{}
	}
	return p
}

// Version returns the peer's protocol version.
func (p *Peer) Version() ServerVersion {
	return p.version
}

// Legacy reports whether the peer uses legacy framing.
func (p *Peer) Legacy() bool {
	_, ok := p.framing.(legacyFraming)
	return ok
}

var defaultPeer = NewPeer(DefaultVersion)
