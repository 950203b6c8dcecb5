package model

// RandomSource supplies cryptographic-quality random bytes.
type RandomSource interface {
	RandomBytes(n int) ([]byte, error)
}
