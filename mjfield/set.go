package mjfield

// indexAfter is the size at which a Set starts keeping a map
// from key to position instead of scanning.
const indexAfter = 16

// Set is an ordered collection of fields with unique keys.
// Insertion order is kept; adding a key that is already present
// replaces the value in place. A Set never shrinks.
//
// The zero Set is empty and ready to use. A Set is not safe for
// concurrent mutation.
type Set struct {
	fields []Field
	index  map[string]int
}

// NewSet builds a Set from fields, later duplicates replacing
// earlier ones.
func NewSet(fields ...Field) Set {
	var s Set
	s.fields = make([]Field, 0, len(fields))
	s.AddAll(fields...)
	return s
}

// Adopt builds a Set that uses fields as its storage. The caller
// must not modify fields afterwards. Duplicate keys are
// compacted in place, keeping the first position and the last value.
func Adopt(fields []Field) Set {
	s := Set{fields: fields[:0]}
	for _, f := range fields {
		s.Add(f)
	}
	return s
}

func (s *Set) Add(f Field) {
	if i := s.Index(f.Key); i >= 0 {
		s.fields[i].Value = f.Value
		return
	}
	s.fields = append(s.fields, f)
	if s.index != nil {
		s.index[f.Key] = len(s.fields) - 1
	} else if len(s.fields) > indexAfter {
		s.index = make(map[string]int, len(s.fields)*2)
		for i, f := range s.fields {
			s.index[f.Key] = i
		}
	}
}

func (s *Set) AddAll(fields ...Field) {
	for _, f := range fields {
		s.Add(f)
	}
}

// Index returns the position of key or -1.
func (s *Set) Index(key string) int {
	if s.index != nil {
		if i, ok := s.index[key]; ok {
			return i
		}
		return -1
	}
	for i := range s.fields {
		if s.fields[i].Key == key {
			return i
		}
	}
	return -1
}

func (s *Set) Has(key string) bool { return s.Index(key) >= 0 }

func (s *Set) Len() int { return len(s.fields) }

// Fields returns the underlying slice. It must not be modified.
func (s *Set) Fields() []Field { return s.fields }
