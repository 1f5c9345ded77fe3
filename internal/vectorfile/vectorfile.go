// Package vectorfile persists a single embedding vector as one line of
// comma-separated decimal values.
//
// Only the first line of a file is read; anything after it is ignored.
package vectorfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrSerialization indicates the file content is not a valid vector.
	ErrSerialization = errors.New("invalid embedding file")

	// ErrNotFound indicates the embedding file does not exist.
	ErrNotFound = errors.New("embedding file not found")
)

const separator = ","

// Save writes vector to path as "v0,v1,...,vn", truncating any existing file.
// No trailing newline is written. Writes are not atomic.
func Save(vector []float32, path string) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("opening %s for write: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if _, err := io.WriteString(f, Format(vector)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads the vector stored on the first line of path. Values are float32;
// literals outside the float32 range fail with ErrSerialization.
func Load(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	vector, err := Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vector, nil
}

// Format renders vector using the shortest decimal form that parses back to
// the same float32.
func Format(vector []float32) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, separator)
}

// Parse decodes a single comma-separated line. An empty line is an error, as
// is a value that overflows float32 (the error also matches strconv.ErrRange).
func Parse(line string) ([]float32, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrSerialization)
	}

	tokens := strings.Split(line, separator)
	vector := make([]float32, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(strings.TrimSpace(tok), 32)
		if errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("%w: value %d (%q) is out of float32 range: %w", ErrSerialization, i, tok, strconv.ErrRange)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: value %d (%q) is not a number", ErrSerialization, i, tok)
		}
		vector[i] = float32(v)
	}
	return vector, nil
}
