package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// readInputs returns one receipt text per argument. No arguments or "-"
// reads standard input.
func readInputs(stdin io.Reader, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}

	texts := make([]string, 0, len(args))
	readStdin := false
	for _, arg := range args {
		var data []byte
		var err error
		if arg == "-" {
			if readStdin {
				return nil, errors.New("standard input given more than once")
			}
			readStdin = true
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(arg)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}

		text := strings.TrimPrefix(string(data), "\ufeff")
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%s: no receipt text", arg)
		}
		texts = append(texts, text)
	}

	return texts, nil
}
