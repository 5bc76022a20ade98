package headers

import (
	"fmt"
	"io"
	"strings"
)

type field struct {
	name  string
	value string
}

// Headers is an ordered header block. Lines are written in the order
// they were first set; lookups ignore case.
type Headers struct {
	fields []field
}

func NewHeaders() *Headers {
	return &Headers{
		fields: make([]field, 0, 4),
	}
}

func (h *Headers) index(key string) int {
	for i, f := range h.fields {
		if strings.EqualFold(f.name, key) {
			return i
		}
	}
	return -1
}

// Get returns the first value for a header
func (h *Headers) Get(key string) (string, bool) {
	i := h.index(key)
	if i == -1 {
		return "", false
	}
	return h.fields[i].value, true
}

// GetAll returns all values for a header
func (h *Headers) GetAll(key string) []string {
	var values []string
	for _, f := range h.fields {
		if strings.EqualFold(f.name, key) {
			values = append(values, f.value)
		}
	}
	return values
}

// Set replaces the value of the first matching header in place, or
// appends it. Later duplicates are dropped.
func (h *Headers) Set(key, value string) {
	i := h.index(key)
	if i == -1 {
		h.fields = append(h.fields, field{name: key, value: value})
		return
	}
	h.fields[i].value = value

	kept := h.fields[:i+1]
	for _, f := range h.fields[i+1:] {
		if !strings.EqualFold(f.name, key) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Add appends a value to a header
func (h *Headers) Add(key, value string) {
	h.fields = append(h.fields, field{name: key, value: value})
}

// Del removes a header
func (h *Headers) Del(key string) {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.name, key) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

func (h *Headers) Len() int {
	return len(h.fields)
}

// WriteTo writes every header as "Name: value\r\n" in order. It does
// not write the blank line that ends the block.
func (h *Headers) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range h.fields {
		n, err := fmt.Fprintf(w, "%s: %s\r\n", f.name, f.value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
