package provider

import "strings"

// Flags is the raw reachability bitfield produced by a provider. The bit
// layout matches the classic platform reachability flags.
type Flags uint32

const (
	TransientConnection  Flags = 1 << 0
	Reachable            Flags = 1 << 1
	ConnectionRequired   Flags = 1 << 2
	ConnectionOnTraffic  Flags = 1 << 3
	InterventionRequired Flags = 1 << 4
	ConnectionOnDemand   Flags = 1 << 5
	IsLocalAddress       Flags = 1 << 16
	IsDirect             Flags = 1 << 17
	IsWWAN               Flags = 1 << 18
)

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

var flagLetters = []struct {
	bit    Flags
	letter byte
}{
	{TransientConnection, 't'},
	{ConnectionRequired, 'c'},
	{ConnectionOnTraffic, 'C'},
	{InterventionRequired, 'i'},
	{ConnectionOnDemand, 'D'},
	{IsLocalAddress, 'l'},
	{IsDirect, 'd'},
}

// String renders the flags as "WR tcCiDld", with '-' for unset bits.
func (f Flags) String() string {
	var sb strings.Builder
	sb.Grow(10)
	sb.WriteByte(pick(f.Has(IsWWAN), 'W'))
	sb.WriteByte(pick(f.Has(Reachable), 'R'))
	sb.WriteByte(' ')
	for _, fl := range flagLetters {
		sb.WriteByte(pick(f.Has(fl.bit), fl.letter))
	}
	return sb.String()
}

func pick(set bool, letter byte) byte {
	if set {
		return letter
	}
	return '-'
}
