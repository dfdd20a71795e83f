package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/qvhoang/huffpress/compression"
)

// The payload never carries the code table, so compressing writes a
// frequency-table sidecar next to the payload and decoding reads it back.
const freqTableSuffix = ".freq.json"

func main() {
	decodeFlagPtr := flag.Bool("decode", false, "flag to decode")
	outputFlagPtr := flag.String("output", "output", "flag for naming output file")
	trimFlagPtr := flag.Bool("trim", false, "strip trailing whitespace before compressing")

	flag.Parse()

	restArgs := flag.Args()

	if len(restArgs) != 1 {
		fmt.Println("Usage: huffpress [-decode] [-trim] [-output name] <file>")
		return
	}

	if *decodeFlagPtr {
		payload, err := os.ReadFile(restArgs[0])
		if err != nil {
			fmt.Println("Error: ", err)
			return
		}
		tableBytes, err := os.ReadFile(restArgs[0] + freqTableSuffix)
		if err != nil {
			fmt.Println("Error: ", err)
			return
		}
		var ft compression.FrequencyTable
		if err := json.Unmarshal(tableBytes, &ft); err != nil {
			fmt.Println("Error: ", err)
			return
		}

		text, err := compression.Decompress(payload, ft)
		if err != nil {
			fmt.Println("Error: ", err)
			return
		}
		err = os.WriteFile(*outputFlagPtr+".txt", []byte(text), 0644)
		if err != nil {
			fmt.Println("Failed to write file: ", err)
			return
		}
		fmt.Println("File written successfully to", *outputFlagPtr+".txt")

	} else {
		data, err := os.ReadFile(restArgs[0])
		if err != nil {
			fmt.Println("Error: ", err)
			return
		}
		text := string(data)
		if *trimFlagPtr {
			text = strings.TrimRight(text, " \t\r\n")
		}

		payload, ft, err := compression.Compress(text)
		if err != nil {
			fmt.Println("Error: ", err)
			return
		}
		tableBytes, err := json.Marshal(ft)
		if err != nil {
			fmt.Println("Error: ", err)
			return
		}

		err = os.WriteFile(*outputFlagPtr+".huff", payload, 0644)
		if err != nil {
			fmt.Println("Failed to write file: ", err)
			return
		}
		err = os.WriteFile(*outputFlagPtr+".huff"+freqTableSuffix, tableBytes, 0644)
		if err != nil {
			fmt.Println("Failed to write file: ", err)
			return
		}
		fmt.Println("File written successfully to", *outputFlagPtr+".huff")
	}
}
