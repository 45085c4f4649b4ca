package engine

import "fmt"

// Lookup maps a compact code to its human-readable name. It is built once at
// load time and read-only afterwards.
type Lookup[K comparable] struct {
	field string
	names map[K]string
	codes []K
}

func newLookup[K comparable](field string) *Lookup[K] {
	return &Lookup[K]{field: field, names: make(map[K]string)}
}

// add records the first (code, name) pair; a later pair naming the same code
// differently is a DataIntegrity failure.
func (l *Lookup[K]) add(line int, code K, name string) error {
	prev, ok := l.names[code]
	if !ok {
		l.names[code] = name
		l.codes = append(l.codes, code)
		return nil
	}
	if prev != name {
		return &IntegrityError{
			Row:    line,
			Field:  l.field,
			Value:  fmt.Sprint(code),
			Reason: fmt.Sprintf("maps to both %q and %q", prev, name),
		}
	}
	return nil
}

// Name returns the name for code.
func (l *Lookup[K]) Name(code K) (string, bool) {
	name, ok := l.names[code]
	return name, ok
}

// Codes returns codes in first-observed order.
func (l *Lookup[K]) Codes() []K {
	out := make([]K, len(l.codes))
	copy(out, l.codes)
	return out
}

func (l *Lookup[K]) Len() int { return len(l.codes) }
