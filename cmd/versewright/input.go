package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// readLyrics loads lyrics from path, or from stdin when path is empty or "-".
func readLyrics(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read lyrics: %w", err)
	}
	text := strings.TrimRight(string(data), "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("read lyrics: no lyrics given (use --file or pipe them on stdin)")
	}
	return text, nil
}
