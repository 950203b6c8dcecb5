package random

import (
	"io"

	"github.com/google/uuid"

	"github.com/dtroode/keybox/internal/model"
)

type reader struct {
	src model.RandomSource
}

// NewReader exposes src as an io.Reader.
func NewReader(src model.RandomSource) io.Reader {
	return &reader{src: src}
}

func (r *reader) Read(p []byte) (int, error) {
	b, err := r.src.RandomBytes(len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, b), nil
}

// SetIdentifierSource makes uuid.New, and so every new record identifier,
// draw from src. A nil src restores crypto/rand.
func SetIdentifierSource(src model.RandomSource) {
	if src == nil {
		uuid.SetRand(nil)
		return
	}
	uuid.SetRand(NewReader(src))
}
