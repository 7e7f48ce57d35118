package pns

import "lukechampine.com/frand"

// FrandRNG adapts the package-level lukechampine.com/frand functions to
// the RNG capability GetMpnIdx needs, giving every search component a
// cheap, non-deterministic-by-default source of tie-breaking randomness
// without threading a *rand.Rand through the call chain.
type FrandRNG struct{}

func (FrandRNG) Intn(n int) int { return frand.Intn(n) }
