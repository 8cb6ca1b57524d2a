// Package vcf turns plain number lists into chunked vCard 3.0 documents.
package vcf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNotText means the upload is not UTF-8 text.
	ErrNotText = errors.New("vcf: file is not valid text")
	// ErrNoNumbers means the upload had no non-blank lines.
	ErrNoNumbers = errors.New("vcf: no numbers found")
	// ErrInvalidChunkSize is returned for a chunk size below one.
	ErrInvalidChunkSize = errors.New("vcf: chunk size must be positive")
	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("vcf: file too large")
	// ErrIndexOverflow means the last contact index would not fit in an int.
	ErrIndexOverflow = errors.New("vcf: start index too large")
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadNumbers reads at most limit bytes from r and parses them with ParseNumbers.
// A non-positive limit disables the check.
func ReadNumbers(r io.Reader, limit int64) ([]string, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("vcf: read upload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	return ParseNumbers(data)
}

// ParseNumbers splits data into trimmed lines and drops blank ones.
// \n, \r\n and a bare \r all end a line.
// Numbers are kept verbatim otherwise.
func ParseNumbers(data []byte) ([]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrNotText
	}
	var out []string
	for _, line := range strings.Split(lineBreaks.Replace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return nil, ErrNoNumbers
	}
	return out, nil
}

// Options drive Generate.
type Options struct {
	ContactName string
	Stem        string
	ChunkSize   int
	StartIndex  int
}

// Document is one generated .vcf file.
type Document struct {
	Part     int
	Name     string
	Contacts int
	Body     []byte
}

// Generate chunks numbers by opts.ChunkSize and renders one document per chunk.
// Contact indexes start at opts.StartIndex and continue across documents.
func Generate(numbers []string, opts Options) ([]Document, error) {
	if opts.ChunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if len(numbers) == 0 {
		return nil, ErrNoNumbers
	}

	if !IndexFits(opts.StartIndex, len(numbers)) {
		return nil, ErrIndexOverflow
	}

	count := len(numbers) / opts.ChunkSize
	if len(numbers)%opts.ChunkSize != 0 {
		count++
	}
	docs := make([]Document, 0, count)
	index := opts.StartIndex
	for start := 0; start < len(numbers); {
		end := len(numbers)
		if opts.ChunkSize < end-start {
			end = start + opts.ChunkSize
		}
		chunk := numbers[start:end]
		start = end

		lines := make([]string, 0, len(chunk)*5)
		for _, num := range chunk {
			lines = append(lines,
				"BEGIN:VCARD",
				"VERSION:3.0",
				fmt.Sprintf("FN:%s %d", opts.ContactName, index),
				"TEL:"+num,
				"END:VCARD",
			)
			index++
		}

		part := len(docs) + 1
		docs = append(docs, Document{
			Part:     part,
			Name:     FileName(opts.Stem, part),
			Contacts: len(chunk),
			Body:     []byte(strings.Join(lines, "\n")),
		})
	}
	return docs, nil
}

// IndexFits reports whether n contacts numbered from start keep increasing
// without wrapping past math.MaxInt.
func IndexFits(start, n int) bool {
	return n <= 0 || start <= math.MaxInt-(n-1)
}

// FileName renders the name of document part.
func FileName(stem string, part int) string {
	return fmt.Sprintf("%s_part%d.vcf", stem, part)
}

// CleanStem trims a user supplied file name and makes it safe to use as a stem.
func CleanStem(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 4 && strings.EqualFold(s[len(s)-4:], ".vcf") {
		s = strings.TrimSpace(s[:len(s)-4])
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, s)
}
