package oto

import "math"

// appendInt16LE appends the stereo float buffer as interleaved 16-bit
// little-endian samples, clamping to full scale.
func appendInt16LE(dst []byte, buf [][2]float32) []byte {
	for _, frame := range buf {
		for ch := 0; ch < 2; ch++ {
			v := frame[ch]
			var s int16
			if v <= -1.0 {
				s = -math.MaxInt16
			} else if v >= 1.0 {
				s = math.MaxInt16
			} else {
				s = int16(v * math.MaxInt16)
			}
			dst = append(dst, byte(s), byte(uint16(s)>>8))
		}
	}
	return dst
}
