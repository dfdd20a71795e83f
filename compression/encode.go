package compression

import "bytes"

// maxPadBits is the largest legal value of the padding header byte.
const maxPadBits = 7

// Encode maps text through the forward table into a packed bit stream.
// The payload starts with one byte recording how many zero bits were appended
// after the final code to reach a byte boundary (0-7), followed by the packed
// bits, most significant bit first. Every symbol in text must have a code in
// t or Encode fails with an UnknownSymbolError.
func Encode(text string, t *CodeTable) ([]byte, error) {
	var body bytes.Buffer
	var cur byte
	var nbits int
	total := 0

	for _, sym := range text {
		code, ok := t.Code(sym)
		if !ok {
			return nil, &UnknownSymbolError{Symbol: sym}
		}
		for _, bit := range code {
			cur <<= 1
			if bit == '1' {
				cur |= 1
			}
			nbits++
			total++
			if nbits == 8 {
				body.WriteByte(cur)
				cur = 0
				nbits = 0
			}
		}
	}

	// flush the remaining bits, padded with 0s on the right
	pad := 0
	if nbits > 0 {
		pad = 8 - nbits
		cur <<= uint(pad)
		body.WriteByte(cur)
	}
	if pad > maxPadBits || (total+pad)%8 != 0 {
		return nil, ErrMisalignedPayload
	}

	payload := make([]byte, 0, 1+body.Len())
	payload = append(payload, byte(pad))
	payload = append(payload, body.Bytes()...)
	return payload, nil
}

// Compress counts the symbol frequencies of text, derives the code table from
// them and encodes text with it. The returned FrequencyTable is the sidecar a
// decoder in another process needs to rebuild the identical table.
func Compress(text string) ([]byte, FrequencyTable, error) {
	ft := CountFrequencies(text)
	payload, err := Encode(text, NewCodeTable(ft))
	if err != nil {
		return nil, nil, err
	}
	return payload, ft, nil
}
