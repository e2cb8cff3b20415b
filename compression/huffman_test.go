package compression

import "testing"

// buildIrisFreqTable mimics the frequency table the IRIS codec's tile
// coefficient stream would produce: a 16-bit symbol alphabet dominated by a
// handful of small zig-zagged coefficients with a long tail of rarer values.
func buildIrisFreqTable() []uint64 {
	freqs := make([]uint64, 65536)
	freqs[0] = 4000
	freqs[1] = 1200
	freqs[2] = 800
	freqs[3] = 400
	for i := 4; i < 64; i++ {
		freqs[i] = uint64(64 - i)
	}
	freqs[512] = 3
	freqs[4096] = 1
	return freqs
}

func TestHuffmanEncodeDecodeRoundTrip(t *testing.T) {
	freqs := buildIrisFreqTable()
	encoder := NewHuffmanEncoder(freqs)

	symbols := make([]uint16, 0, 2048)
	for i := 0; i < 512; i++ {
		symbols = append(symbols, 0, 1, 2, 3, uint16(i%64))
	}
	symbols = append(symbols, 512, 4096)

	encoded := encoder.Encode(symbols)
	if len(encoded) == 0 {
		t.Fatal("Encode returned no data for non-empty symbol stream")
	}

	decoder := NewHuffmanDecoder(encoder.GetLengths())
	decoded, err := decoder.Decode(encoded, len(symbols))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(decoded) != len(symbols) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(symbols))
	}
	for i, v := range decoded {
		if v != symbols[i] {
			t.Errorf("index %d: got %d, want %d", i, v, symbols[i])
		}
	}
}

func TestHuffmanEncodeDecodeLongCodes(t *testing.T) {
	// A flat frequency distribution over a large alphabet forces codes
	// longer than huffmanTableBits, exercising the decoder's long-code path.
	freqs := make([]uint64, 8192)
	for i := range freqs {
		freqs[i] = 1
	}
	encoder := NewHuffmanEncoder(freqs)
	lengths := encoder.GetLengths()

	maxLen := 0
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen <= huffmanTableBits {
		t.Skipf("max code length %d did not exceed %d, long-code path untested", maxLen, huffmanTableBits)
	}

	symbols := make([]uint16, 1000)
	for i := range symbols {
		symbols[i] = uint16(i % len(freqs))
	}

	encoded := encoder.Encode(symbols)
	decoder := NewHuffmanDecoder(lengths)
	decoded, err := decoder.Decode(encoded, len(symbols))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	for i, v := range decoded {
		if v != symbols[i] {
			t.Errorf("index %d: got %d, want %d", i, v, symbols[i])
		}
	}
}

func TestHuffmanDecoderMaxLenZero(t *testing.T) {
	d := NewHuffmanDecoder([]int{})
	_, err := d.Decode([]byte{0xFF, 0xFF}, 5)
	if err != ErrHuffmanCorrupted {
		t.Errorf("expected ErrHuffmanCorrupted for maxLen=0, got %v", err)
	}
}

func TestHuffmanDecoderCorruptedData(t *testing.T) {
	freqs := make([]uint64, 256)
	freqs[0] = 50
	freqs[1] = 30
	freqs[2] = 15
	freqs[3] = 5

	encoder := NewHuffmanEncoder(freqs)
	decoder := NewHuffmanDecoder(encoder.GetLengths())

	_, err := decoder.Decode([]byte{0xFF, 0x00, 0xAA, 0x55}, 1000)
	if err == nil {
		t.Error("expected error decoding garbage data")
	}
}

func TestHuffmanDecoderRequestsMoreThanEncoded(t *testing.T) {
	freqs := make([]uint64, 16)
	freqs[0] = 100
	freqs[1] = 50
	freqs[2] = 25

	encoder := NewHuffmanEncoder(freqs)
	decoder := NewHuffmanDecoder(encoder.GetLengths())

	encoded := encoder.Encode([]uint16{0, 1, 0, 2})
	if _, err := decoder.Decode(encoded, 100); err == nil {
		t.Error("expected error when decoding more symbols than were encoded")
	}
}

func TestHuffmanEncoderEmptyFreqs(t *testing.T) {
	encoder := NewHuffmanEncoder(nil)
	if encoder == nil {
		t.Fatal("NewHuffmanEncoder(nil) returned nil")
	}
	if result := encoder.Encode(nil); result != nil {
		t.Error("Encode(nil) should return nil")
	}
	if codes := encoder.GetCodes(); len(codes) != 0 {
		t.Errorf("GetCodes() should return empty slice, got %d elements", len(codes))
	}
}

func TestHuffmanEncoderAllZeroFreqs(t *testing.T) {
	freqs := make([]uint64, 100)
	encoder := NewHuffmanEncoder(freqs)
	if result := encoder.Encode([]uint16{0, 1, 2}); result != nil {
		t.Error("Encode should return nil when every frequency is zero")
	}
}
