package filter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads rules from r, one per line:
//
//	+ pattern   include
//	- pattern   exclude
//	pattern     exclude
//	# comment   ignored, as are blank lines
//
// name labels errors.
func (c *Chain) Load(r io.Reader, name string) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := c.AddRule(line); err != nil {
			return fmt.Errorf("filter file %s line %d: %w", name, lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read filter file %s: %w", name, err)
	}
	return nil
}

// LoadFile reads rules from the file at path. See Load for the format.
func (c *Chain) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open filter file: %w", err)
	}
	defer f.Close()
	return c.Load(f, path)
}
