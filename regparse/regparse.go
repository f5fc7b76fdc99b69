// Package regparse decodes a byte buffer of Modbus holding registers into a
// scalar value per a declared numeric encoding. Register words arrive in
// big-endian order on the wire; composition across registers follows the
// encoding tag.
package regparse

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ptindo/fleet-worker/models"
)

// ErrUnsupportedEncoding is returned for an unknown encoding tag.
var ErrUnsupportedEncoding = fmt.Errorf("regparse: unsupported encoding")

// ErrShortBuffer is returned when the buffer is smaller than the encoding needs.
var ErrShortBuffer = fmt.Errorf("regparse: buffer too short")

// Parse decodes data (2*registerCount bytes, big-endian register order) per enc.
// Parsing never retries; callers own retry policy.
func Parse(data []byte, enc models.Encoding) (float64, error) {
	switch enc {
	case models.EncodingFloat32BE:
		if len(data) < 4 {
			return 0, ErrShortBuffer
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(data))), nil

	case models.EncodingFloat32LE:
		if len(data) < 4 {
			return 0, ErrShortBuffer
		}
		swapped := swapWords32(data)
		return float64(math.Float32frombits(binary.BigEndian.Uint32(swapped))), nil

	case models.EncodingInt16BE:
		if len(data) < 2 {
			return 0, ErrShortBuffer
		}
		return float64(int16(binary.BigEndian.Uint16(data))), nil

	case models.EncodingInt16LE:
		if len(data) < 2 {
			return 0, ErrShortBuffer
		}
		return float64(int16(binary.LittleEndian.Uint16(data))), nil

	case models.EncodingUint16BE:
		if len(data) < 2 {
			return 0, ErrShortBuffer
		}
		return float64(binary.BigEndian.Uint16(data)), nil

	case models.EncodingUint16LE:
		if len(data) < 2 {
			return 0, ErrShortBuffer
		}
		return float64(binary.LittleEndian.Uint16(data)), nil

	case models.EncodingInt32BE:
		if len(data) < 4 {
			return 0, ErrShortBuffer
		}
		return float64(int32(binary.BigEndian.Uint32(data))), nil

	case models.EncodingInt32LE:
		if len(data) < 4 {
			return 0, ErrShortBuffer
		}
		swapped := swapWords32(data)
		return float64(int32(binary.BigEndian.Uint32(swapped))), nil

	case models.EncodingUint32BE:
		if len(data) < 4 {
			return 0, ErrShortBuffer
		}
		return float64(binary.BigEndian.Uint32(data)), nil

	case models.EncodingUint32LE:
		if len(data) < 4 {
			return 0, ErrShortBuffer
		}
		swapped := swapWords32(data)
		return float64(binary.BigEndian.Uint32(swapped)), nil

	default:
		return 0, ErrUnsupportedEncoding
	}
}

// Encode is the inverse of Parse, used only by round-trip tests: it produces
// the register buffer that would parse back to v under enc.
func Encode(v float64, enc models.Encoding) ([]byte, error) {
	buf := make([]byte, 4)
	switch enc {
	case models.EncodingFloat32BE:
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return buf, nil
	case models.EncodingFloat32LE:
		binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return swapWords32(buf), nil
	case models.EncodingInt16BE:
		buf = buf[:2]
		binary.BigEndian.PutUint16(buf, uint16(int16(v)))
		return buf, nil
	case models.EncodingInt16LE:
		buf = buf[:2]
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
		return buf, nil
	case models.EncodingUint16BE:
		buf = buf[:2]
		binary.BigEndian.PutUint16(buf, uint16(v))
		return buf, nil
	case models.EncodingUint16LE:
		buf = buf[:2]
		binary.LittleEndian.PutUint16(buf, uint16(v))
		return buf, nil
	case models.EncodingInt32BE:
		binary.BigEndian.PutUint32(buf, uint32(int32(v)))
		return buf, nil
	case models.EncodingInt32LE:
		binary.BigEndian.PutUint32(buf, uint32(int32(v)))
		return swapWords32(buf), nil
	case models.EncodingUint32BE:
		binary.BigEndian.PutUint32(buf, uint32(v))
		return buf, nil
	case models.EncodingUint32LE:
		binary.BigEndian.PutUint32(buf, uint32(v))
		return swapWords32(buf), nil
	default:
		return nil, ErrUnsupportedEncoding
	}
}

// swapWords32 swaps the two 16-bit register words of a 4-byte buffer, used to
// turn a little-endian (word-swapped) 32-bit value into plain big-endian
// before applying the standard big-endian reader, and vice versa.
func swapWords32(data []byte) []byte {
	out := make([]byte, 4)
	out[0], out[1] = data[2], data[3]
	out[2], out[3] = data[0], data[1]
	return out
}
