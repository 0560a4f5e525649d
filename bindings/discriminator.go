package bindings

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Discriminator identifies a component by its path in the server's process
// tree. The zero value is the root (unset) discriminator; a top-level spawned
// process is [1].
//
// Discriminators are immutable and comparable with ==, so they can be used as
// map keys. The path is packed into a string of big-endian uint32 values.
type Discriminator struct {
	packed string
}

// NewDiscriminator builds a discriminator from a path.
func NewDiscriminator(path ...uint32) Discriminator {
	if len(path) == 0 {
		return Discriminator{}
	}
	buf := make([]byte, 4*len(path))
	for i, part := range path {
		binary.BigEndian.PutUint32(buf[i*4:], part)
	}
	return Discriminator{packed: string(buf)}
}

// Master is the discriminator of the first top-level component, [1]. Messages
// sent to it reach every component of the session and dropping it ends the
// session.
func Master() Discriminator {
	return NewDiscriminator(1)
}

// Len returns the depth of the path.
func (d Discriminator) Len() int {
	return len(d.packed) / 4
}

// IsRoot reports whether d is the empty path.
func (d Discriminator) IsRoot() bool {
	return d.packed == ""
}

// At returns the i-th path element.
func (d Discriminator) At(i int) uint32 {
	return binary.BigEndian.Uint32([]byte(d.packed[i*4 : i*4+4]))
}

// Path returns a copy of the path.
func (d Discriminator) Path() []uint32 {
	out := make([]uint32, d.Len())
	for i := range out {
		out[i] = d.At(i)
	}
	return out
}

// Contains reports whether other lies within the subtree rooted at d, that is,
// whether d is a prefix of other. Every discriminator contains itself.
func (d Discriminator) Contains(other Discriminator) bool {
	return strings.HasPrefix(other.packed, d.packed)
}

// Child returns the discriminator one level below d.
func (d Discriminator) Child(n uint32) Discriminator {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], n)
	return Discriminator{packed: d.packed + string(buf[:])}
}

// Parent returns d without its last element. The root is its own parent.
func (d Discriminator) Parent() Discriminator {
	if d.IsRoot() {
		return d
	}
	return Discriminator{packed: d.packed[:len(d.packed)-4]}
}

// String renders the path with dots, e.g. "1.2.3". The root renders as "".
func (d Discriminator) String() string {
	if d.IsRoot() {
		return ""
	}
	parts := make([]string, d.Len())
	for i := range parts {
		parts[i] = strconv.FormatUint(uint64(d.At(i)), 10)
	}
	return strings.Join(parts, ".")
}

// ParseDiscriminator parses the dotted form produced by String. Empty input
// and "/" parse as the root.
func ParseDiscriminator(s string) (Discriminator, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "/" {
		return Discriminator{}, nil
	}
	fields := strings.Split(s, ".")
	path := make([]uint32, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.ParseUint(strings.TrimSpace(field), 10, 32)
		if err != nil {
			return Discriminator{}, fmt.Errorf("parse discriminator %q: %w", s, err)
		}
		path = append(path, uint32(n))
	}
	return NewDiscriminator(path...), nil
}

// MarshalJSON implements json.Marshaler. The root encodes as [].
func (d Discriminator) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Path())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Discriminator) UnmarshalJSON(data []byte) error {
	var path []uint32
	if err := json.Unmarshal(data, &path); err != nil {
		return fmt.Errorf("bindings: decode discriminator: %w", err)
	}
	*d = NewDiscriminator(path...)
	return nil
}
