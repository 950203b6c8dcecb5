package algorithm

// DeriveKey stretches passphrase into a key by hashing salt ++ passphrase and
// then rehashing the previous output, iterations times in total.
func DeriveKey(d Digest, salt []byte, passphrase string, iterations int) []byte {
	key := make([]byte, 0, len(salt)+len(passphrase))
	key = append(key, salt...)
	key = append(key, passphrase...)
	for i := 0; i < iterations; i++ {
		key = d.Sum(key)
	}
	return key
}
