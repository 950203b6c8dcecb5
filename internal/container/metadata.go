package container

import (
	"fmt"

	"github.com/dtroode/keybox/internal/algorithm"
	"github.com/dtroode/keybox/internal/model"
	"github.com/dtroode/keybox/internal/record"
)

// Metadata field names of the container record.
const (
	FieldVersion               = "version"
	FieldKeyCalcIterations     = "key_calc_iterations"
	FieldKeyDigestSalt         = "key_digest_salt"
	FieldKeyDigestAlgorithm    = "key_digest_algorithm"
	FieldKeyDigest             = "key_digest"
	FieldRecordCipherAlgorithm = "record_cipher_algorithm"
	FieldRecordInitVector      = "record_init_vector"
	FieldRecordData            = "record_data"
	FieldRecordDigestAlgorithm = "record_digest_algorithm"
	FieldRecordDigestSalt      = "record_digest_salt"
	FieldRecordDigest          = "record_digest"
)

// suite is the resolved algorithm choice of one container.
type suite struct {
	iterations   int
	cipher       algorithm.Cipher
	keyDigest    algorithm.Digest
	recordDigest algorithm.Digest
}

// material is the crypto state read back from a metadata record.
type material struct {
	suite
	keySalt        []byte
	keyVerifier    string
	iv             []byte
	data           []byte
	recordSalt     []byte
	recordVerifier string
}

func readSuite(meta *record.Record) (suite, error) {
	iterations, ok := meta.GetInt(FieldKeyCalcIterations)
	if !ok || iterations <= 0 {
		return suite{}, model.NewValidationError(FieldKeyCalcIterations, "must be a positive integer")
	}

	c, err := algorithm.LookupCipher(meta.GetString(FieldRecordCipherAlgorithm))
	if err != nil {
		return suite{}, err
	}
	kd, err := algorithm.LookupDigest(meta.GetString(FieldKeyDigestAlgorithm))
	if err != nil {
		return suite{}, err
	}
	rd, err := algorithm.LookupDigest(meta.GetString(FieldRecordDigestAlgorithm))
	if err != nil {
		return suite{}, err
	}

	return suite{iterations: int(iterations), cipher: c, keyDigest: kd, recordDigest: rd}, nil
}

func readMaterial(meta *record.Record) (material, error) {
	s, err := readSuite(meta)
	if err != nil {
		return material{}, err
	}

	m := material{
		suite:          s,
		keySalt:        meta.GetBytes(FieldKeyDigestSalt),
		keyVerifier:    meta.GetString(FieldKeyDigest),
		iv:             meta.GetBytes(FieldRecordInitVector),
		data:           meta.GetBytes(FieldRecordData),
		recordSalt:     meta.GetBytes(FieldRecordDigestSalt),
		recordVerifier: meta.GetString(FieldRecordDigest),
	}
	if len(m.keySalt) == 0 {
		return material{}, model.NewValidationError(FieldKeyDigestSalt, "missing")
	}
	if m.keyVerifier == "" {
		return material{}, model.NewValidationError(FieldKeyDigest, "missing")
	}
	if len(m.iv) != s.cipher.IVSize() {
		return material{}, model.NewValidationError(FieldRecordInitVector,
			fmt.Sprintf("expected %d bytes, got %d", s.cipher.IVSize(), len(m.iv)))
	}
	return m, nil
}

// writeSuite records the algorithm choice in meta.
func writeSuite(meta *record.Record, s suite) error {
	for _, f := range []record.Field{
		{Name: FieldVersion, Value: record.StringValue(Version)},
		{Name: FieldKeyCalcIterations, Value: record.IntValue(int64(s.iterations))},
		{Name: FieldKeyDigestSalt, Value: record.BytesValue(nil)},
		{Name: FieldKeyDigestAlgorithm, Value: record.StringValue(s.keyDigest.String())},
		{Name: FieldKeyDigest, Value: record.StringValue("")},
		{Name: FieldRecordCipherAlgorithm, Value: record.StringValue(s.cipher.String())},
		{Name: FieldRecordInitVector, Value: record.BytesValue(nil)},
		{Name: FieldRecordData, Value: record.BytesValue(nil)},
		{Name: FieldRecordDigestAlgorithm, Value: record.StringValue(s.recordDigest.String())},
		{Name: FieldRecordDigestSalt, Value: record.BytesValue(nil)},
		{Name: FieldRecordDigest, Value: record.StringValue("")},
	} {
		if err := meta.Set(f.Name, f.Value); err != nil {
			return fmt.Errorf("failed to set %s: %w", f.Name, err)
		}
	}
	return nil
}
