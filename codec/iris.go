package codec

import (
	"encoding/binary"
	"errors"

	"github.com/IrisDigitalPathology/iris-codec/compression"
	"github.com/octu0/wht"
)

// ErrIRISCorrupted is returned when an IRIS-encoded tile fails to decode.
var ErrIRISCorrupted = errors.New("codec: corrupted IRIS tile data")

const blockSize = 8

// irisBlockForward runs the separable 2D Walsh-Hadamard transform
// (Y = H*X*H) over an 8x8 block of channel-centered pixel values. It is the
// IRIS tile codec's decorrelation stage, run ahead of Huffman entropy
// coding.
func irisBlockForward(x [blockSize][blockSize]int16) [blockSize][blockSize]int16 {
	var rows [blockSize][blockSize]int16
	for r := 0; r < blockSize; r++ {
		rows[r] = wht.Transform8(x[r])
	}
	var out [blockSize][blockSize]int16
	for c := 0; c < blockSize; c++ {
		var col [blockSize]int16
		for r := 0; r < blockSize; r++ {
			col[r] = rows[r][c]
		}
		col = wht.Transform8(col)
		for r := 0; r < blockSize; r++ {
			out[r][c] = col[r]
		}
	}
	return out
}

// irisBlockInverse undoes irisBlockForward. H*Y*H = 64*X exactly (H is its
// own 64-fold scaled inverse for an 8-point Walsh-Hadamard matrix), so
// running the same two transform passes again and dividing by 64 at the
// end recovers X losslessly without intermediate rounding.
func irisBlockInverse(y [blockSize][blockSize]int16) [blockSize][blockSize]int16 {
	var rows [blockSize][blockSize]int32
	for r := 0; r < blockSize; r++ {
		var v [blockSize]int32
		t := wht.Transform8(y[r])
		for c := 0; c < blockSize; c++ {
			v[c] = int32(t[c])
		}
		rows[r] = v
	}
	var out [blockSize][blockSize]int16
	for c := 0; c < blockSize; c++ {
		var col [blockSize]int32
		for r := 0; r < blockSize; r++ {
			col[r] = rows[r][c]
		}
		transformed := transform8Int32(col)
		for r := 0; r < blockSize; r++ {
			out[r][c] = int16(transformed[r] / 64)
		}
	}
	return out
}

// transform8Int32 mirrors wht.Transform8 at int32 width, needed for the
// second inverse pass where intermediate magnitudes (up to 64x the original
// pixel range) would otherwise risk overflowing int16.
func transform8Int32(in [8]int32) [8]int32 {
	a0 := in[0] + in[1]
	a1 := in[0] - in[1]
	a2 := in[2] + in[3]
	a3 := in[2] - in[3]
	a4 := in[4] + in[5]
	a5 := in[4] - in[5]
	a6 := in[6] + in[7]
	a7 := in[6] - in[7]

	b0 := a0 + a2
	b1 := a1 + a3
	b2 := a0 - a2
	b3 := a1 - a3
	b4 := a4 + a6
	b5 := a5 + a7
	b6 := a4 - a6
	b7 := a5 - a7
	return [8]int32{
		b0 + b4, b1 + b5, b2 + b6, b3 + b7,
		b0 - b4, b1 - b5, b2 - b6, b3 - b7,
	}
}

// symbolBias shifts a signed WHT coefficient into the unsigned uint16
// symbol space compression.HuffmanEncoder operates over.
const symbolBias = 32768

// compressIRIS implements the IRIS Encoding's codec.compress function: an
// 8x8 block Walsh-Hadamard transform per channel plane, zigzag-ordered,
// Huffman entropy packed.
func compressIRIS(tile []byte, width, height, channels int) ([]byte, error) {
	if width%blockSize != 0 || height%blockSize != 0 {
		return nil, errors.New("codec: IRIS tile dimensions must be multiples of 8")
	}
	numSymbols := width * height * channels
	symbols := make([]uint16, 0, numSymbols)

	blocksY := height / blockSize
	blocksX := width / blockSize
	for c := 0; c < channels; c++ {
		for by := 0; by < blocksY; by++ {
			for bx := 0; bx < blocksX; bx++ {
				block := extractBlock(tile, width, channels, c, by, bx)
				transformed := irisBlockForward(block)
				symbols = append(symbols, zigzagEncode(transformed)...)
			}
		}
	}

	freqs := make([]uint64, 65536)
	for _, s := range symbols {
		freqs[s]++
	}
	encoder := compression.NewHuffmanEncoder(freqs)
	packed := encoder.Encode(symbols)
	lengths := encoder.GetLengths()

	minSym, maxSym := huffmanRange(lengths)

	out := make([]byte, 0, 8+(maxSym-minSym+1)+len(packed))
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(numSymbols))
	binary.LittleEndian.PutUint16(hdr[4:6], uint16(minSym))
	binary.LittleEndian.PutUint16(hdr[6:8], uint16(maxSym))
	out = append(out, hdr[:]...)
	for i := minSym; i <= maxSym; i++ {
		out = append(out, byte(lengths[i]))
	}
	out = append(out, packed...)
	return out, nil
}

// decompressIRIS is the inverse of compressIRIS.
func decompressIRIS(data []byte, width, height, channels int) ([]byte, error) {
	if len(data) < 8 {
		return nil, ErrIRISCorrupted
	}
	numSymbols := int(binary.LittleEndian.Uint32(data[0:4]))
	minSym := int(binary.LittleEndian.Uint16(data[4:6]))
	maxSym := int(binary.LittleEndian.Uint16(data[6:8]))
	if maxSym < minSym || maxSym >= 65536 {
		return nil, ErrIRISCorrupted
	}
	tableLen := maxSym - minSym + 1
	if len(data) < 8+tableLen {
		return nil, ErrIRISCorrupted
	}
	lengths := make([]int, 65536)
	for i := 0; i < tableLen; i++ {
		lengths[minSym+i] = int(data[8+i])
	}
	decoder := compression.NewHuffmanDecoder(lengths)
	symbols, err := decoder.Decode(data[8+tableLen:], numSymbols)
	if err != nil {
		return nil, err
	}
	if len(symbols) != width*height*channels {
		return nil, ErrIRISCorrupted
	}

	tile := make([]byte, width*height*channels)
	blocksY := height / blockSize
	blocksX := width / blockSize
	idx := 0
	for c := 0; c < channels; c++ {
		for by := 0; by < blocksY; by++ {
			for bx := 0; bx < blocksX; bx++ {
				block := zigzagDecode(symbols[idx : idx+blockSize*blockSize])
				idx += blockSize * blockSize
				restored := irisBlockInverse(block)
				writeBlock(tile, width, channels, c, by, bx, restored)
			}
		}
	}
	return tile, nil
}

func extractBlock(tile []byte, width, channels, c, by, bx int) [blockSize][blockSize]int16 {
	var block [blockSize][blockSize]int16
	for y := 0; y < blockSize; y++ {
		row := (by*blockSize + y) * width * channels
		for x := 0; x < blockSize; x++ {
			px := tile[row+(bx*blockSize+x)*channels+c]
			block[y][x] = int16(px) - 128
		}
	}
	return block
}

func writeBlock(tile []byte, width, channels, c, by, bx int, block [blockSize][blockSize]int16) {
	for y := 0; y < blockSize; y++ {
		row := (by*blockSize + y) * width * channels
		for x := 0; x < blockSize; x++ {
			v := int(block[y][x]) + 128
			switch {
			case v < 0:
				v = 0
			case v > 255:
				v = 255
			}
			tile[row+(bx*blockSize+x)*channels+c] = byte(v)
		}
	}
}

func zigzagEncode(block [blockSize][blockSize]int16) []uint16 {
	matrix := make([][]int16, blockSize)
	for i := range matrix {
		row := make([]int16, blockSize)
		copy(row, block[i][:])
		matrix[i] = row
	}
	flat := wht.Zigzag(matrix)
	out := make([]uint16, blockSize*blockSize)
	for i, v := range flat {
		out[i] = uint16(int32(v) + symbolBias)
	}
	return out
}

func zigzagDecode(symbols []uint16) [blockSize][blockSize]int16 {
	flat := make([]int16, len(symbols))
	for i, s := range symbols {
		flat[i] = int16(int32(s) - symbolBias)
	}
	matrix := wht.Unzigzag(flat, blockSize)
	var block [blockSize][blockSize]int16
	for i := 0; i < blockSize; i++ {
		copy(block[i][:], matrix[i])
	}
	return block
}

func huffmanRange(lengths []int) (min, max int) {
	min, max = -1, -1
	for i, l := range lengths {
		if l <= 0 {
			continue
		}
		if min == -1 {
			min = i
		}
		max = i
	}
	if min == -1 {
		return 0, 0
	}
	return min, max
}
