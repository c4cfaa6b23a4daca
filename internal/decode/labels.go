package decode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// Labels is the recognizer's character table. Class 0 is the implicit
// blank, class i in 1..len maps to Labels[i-1] and class len+1 is a space.
type Labels []string

// LoadLabels reads a label file with one label per line.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read label file %s: %w", path, err)
	}
	return labels, nil
}

// ReadLabels reads one label per line. A trailing carriage return is
// stripped; other whitespace is significant.
func ReadLabels(r io.Reader) (Labels, error) {
	var labels Labels
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		labels = append(labels, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, ocrerr.Configuration("label table is empty")
	}
	return labels, nil
}

// Lookup maps a class index to its symbol.
func (l Labels) Lookup(i int) (string, error) {
	switch {
	case i > 0 && i <= len(l):
		return l[i-1], nil
	case i == len(l)+1:
		return " ", nil
	default:
		return "", ocrerr.LabelIndexOutOfRange(i, len(l))
	}
}

// Classes returns the class count a matching model must output: blank,
// every label and the trailing space.
func (l Labels) Classes() int {
	return len(l) + 2
}
