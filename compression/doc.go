// Package compression implements a static Huffman coder: it derives a
// prefix-free bit code from symbol frequencies, packs coded text into a
// self-describing single-block payload, and reverses the process losslessly.
//
// The payload does not carry the code table. Callers transport the
// FrequencyTable beside the payload and rebuild the table on the decoding
// side; table construction is deterministic, so the same frequencies always
// produce the same codes.
package compression
