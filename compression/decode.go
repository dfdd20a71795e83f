package compression

import "strings"

// Decode reverses Encode: it expands payload back into bits, strips the
// padding described by the header byte, and greedily matches accumulated bits
// against the reverse table. Greedy matching is unambiguous because the code
// set is prefix-free. t must be the exact table the payload was encoded with.
func Decode(payload []byte, t *CodeTable) (string, error) {
	if len(payload) == 0 {
		return "", ErrTruncatedPayload
	}

	pad := int(payload[0])
	body := payload[1:]
	bits := len(body)*8 - pad
	if pad > maxPadBits || bits < 0 {
		return "", ErrTruncatedPayload
	}

	var out strings.Builder
	code := make([]byte, 0, 64)
	for i := 0; i < bits; i++ {
		bit := (body[i/8] >> uint(7-i%8)) & 1
		code = append(code, '0'+bit)
		if sym, ok := t.Symbol(string(code)); ok {
			out.WriteRune(sym)
			code = code[:0]
		}
	}
	if len(code) != 0 {
		return "", ErrTruncatedPayload
	}
	return out.String(), nil
}

// Decompress rebuilds the code table from ft and decodes payload with it.
func Decompress(payload []byte, ft FrequencyTable) (string, error) {
	return Decode(payload, NewCodeTable(ft))
}
