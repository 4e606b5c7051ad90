package eventbus

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// DefaultCompressThreshold - размер JSON в байтах, начиная с которого конверт сжимается
const DefaultCompressThreshold = 1024

// Первый байт кадра указывает способ кодирования
const (
	framePlain byte = 'j'
	frameZstd  byte = 'z'
)

var ErrBadFrame = errors.New("eventbus: bad frame")

// Codec кодирует конверты в JSON и сжимает крупные кадры zstd.
// Безопасен для параллельного использования.
type Codec struct {
	threshold int
	enc       *zstd.Encoder
	dec       *zstd.Decoder
}

// NewCodec создаёт кодек. threshold == 0 - DefaultCompressThreshold, < 0 - без сжатия.
func NewCodec(threshold int) (*Codec, error) {
	if threshold == 0 {
		threshold = DefaultCompressThreshold
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{threshold: threshold, enc: enc, dec: dec}, nil
}

// Encode сериализует конверт в кадр
func (c *Codec) Encode(ev *Envelope) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	if c.threshold < 0 || len(data) < c.threshold {
		return append([]byte{framePlain}, data...), nil
	}
	frame := make([]byte, 1, len(data)/2+1)
	frame[0] = frameZstd
	return c.enc.EncodeAll(data, frame), nil
}

// Decode восстанавливает конверт из кадра
func (c *Codec) Decode(frame []byte) (*Envelope, error) {
	if len(frame) == 0 {
		return nil, ErrBadFrame
	}

	data := frame[1:]
	switch frame[0] {
	case framePlain:
	case frameZstd:
		var err error
		data, err = c.dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown marker %q", ErrBadFrame, frame[0])
	}

	var ev Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return &ev, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
