// world/key.go
package world

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the canonical "x,y,z" encoding of integer voxel coordinates.
// Negative coordinates are allowed; the comma separator keeps distinct
// coordinates from colliding.
type Key string

// At builds the key for integer coordinates.
func At(x, y, z int) Key {
	return Key(strconv.Itoa(x) + "," + strconv.Itoa(y) + "," + strconv.Itoa(z))
}

// ParseKey decodes a key back into coordinates, rejecting anything that is
// not exactly three comma-separated integers.
func ParseKey(k Key) (x, y, z int, err error) {
	parts := strings.Split(string(k), ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("bad block key %q", k)
	}
	x, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad block key %q", k)
	}
	y, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad block key %q", k)
	}
	z, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad block key %q", k)
	}
	return x, y, z, nil
}

// ValidKey reports whether k is a well-formed block key.
func ValidKey(k Key) bool {
	_, _, _, err := ParseKey(k)
	return err == nil
}
