package engine

// golden is 2^64 divided by the golden ratio, the splitmix64 increment.
const golden = 0x9e3779b97f4a7c15

// Substream returns the two PCG seed words for a trial. The derivation depends
// only on (seed, trial), which is what makes runs independent of scheduling.
func Substream(seed uint64, trial int) (hi, lo uint64) {
	k := mix64(uint64(trial) + golden)
	hi = mix64(seed ^ k)
	lo = mix64(hi + golden)
	return hi, lo
}

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
