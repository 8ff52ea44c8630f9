package segtrack

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadClassNames reads the class names used by the segment detector from
// the given text file. It should contain one name per line, the line
// number being the detector class index.
func LoadClassNames(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var names []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		names = append(names, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return names, nil
}
