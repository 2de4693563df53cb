//go:build tinygo

package mmio

import "runtime/volatile"

// Register8/16/32 are the real volatile register words on the target.
type (
	Register8  = volatile.Register8
	Register16 = volatile.Register16
	Register32 = volatile.Register32
)
