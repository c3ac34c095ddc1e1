package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// NodeID is a content-addressed identifier for graph nodes. It is the
// SHA-256 of the node's construction path in the source program.
type NodeID [sha256.Size]byte

// ZeroID is the unset NodeID.
var ZeroID NodeID

// NewNodeID derives a NodeID from a construction path such as
// "defsolid/bracket" or "union/_anon_3".
func NewNodeID(path string) NodeID {
	return NodeID(sha256.Sum256([]byte(path)))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// String returns the full hex form of id.
func (id NodeID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first twelve hex digits of id, for messages.
func (id NodeID) Short() string { return hex.EncodeToString(id[:6]) }

// MarshalText encodes id as hex so it can key JSON maps.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex NodeID.
func (id *NodeID) UnmarshalText(b []byte) error {
	if len(b) != 2*len(id) {
		return fmt.Errorf("graph: node id: want %d hex digits, got %d", 2*len(id), len(b))
	}
	_, err := hex.Decode(id[:], b)
	return err
}

// ContentHash is the SHA-256 of a node's data and its children's hashes.
type ContentHash [sha256.Size]byte

// SourceRef locates the expression that produced a node.
type SourceRef struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Col  int    `json:"col,omitempty"`
}

func (s SourceRef) String() string {
	if s.File == "" {
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// Vec3 is a plain 3-vector in model units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool { return v == Vec3{} }
