package compression

// FrequencyTable maps each symbol to its number of occurrences in the input.
// It is the only artifact a decoder in another process needs to rebuild the
// code table, so it is what gets serialized beside a payload.
type FrequencyTable map[rune]uint64

// CountFrequencies counts symbol occurrences in text. An empty input yields
// an empty table.
func CountFrequencies(text string) FrequencyTable {
	ft := make(FrequencyTable)
	for _, sym := range text {
		ft[sym]++
	}
	return ft
}
