package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementType is the primitive type of the elements of a shape.
type ElementType int

const (
	PRED ElementType = iota
	S32
	S64
	U32
	U64
	F32
)

func (t ElementType) String() string {
	switch t {
	case PRED:
		return "pred"
	case S32:
		return "s32"
	case S64:
		return "s64"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	default:
		panic("invalid element type")
	}
}

// IsInteger reports whether values of the type are integers.
func (t ElementType) IsInteger() bool {
	switch t {
	case S32, S64, U32, U64:
		return true
	default:
		return false
	}
}

func parseElementType(s string) (ElementType, error) {
	for _, t := range []ElementType{PRED, S32, S64, U32, U64, F32} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

// Shape describes the type and dimensions of an instruction's result.
type Shape struct {
	Type ElementType
	Dims []int64
}

// ScalarShape returns a rank-0 shape of the given type.
func ScalarShape(t ElementType) Shape {
	return Shape{Type: t}
}

// ArrayShape returns a shape with the given type and dimensions.
func ArrayShape(t ElementType, dims ...int64) Shape {
	return Shape{Type: t, Dims: dims}
}

// IsScalar reports whether the shape has rank 0.
func (s Shape) IsScalar() bool {
	return len(s.Dims) == 0
}

// Compatible reports whether two shapes have the same type and dimensions.
func (s Shape) Compatible(other Shape) bool {
	if s.Type != other.Type || len(s.Dims) != len(other.Dims) {
		return false
	}
	for i := range s.Dims {
		if s.Dims[i] != other.Dims[i] {
			return false
		}
	}
	return true
}

// WithType returns a copy of the shape with a different element type.
func (s Shape) WithType(t ElementType) Shape {
	if len(s.Dims) == 0 {
		return ScalarShape(t)
	}
	dims := make([]int64, len(s.Dims))
	copy(dims, s.Dims)
	return Shape{Type: t, Dims: dims}
}

// String formats the shape as, e.g., "f32[8,16]".
func (s Shape) String() string {
	dims := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		dims[i] = strconv.FormatInt(d, 10)
	}
	return fmt.Sprintf("%s[%s]", s.Type, strings.Join(dims, ","))
}

// ParseShape parses the format produced by Shape.String.
func ParseShape(text string) (Shape, error) {
	text = strings.TrimSpace(text)
	open := strings.IndexByte(text, '[')
	if open < 0 || !strings.HasSuffix(text, "]") {
		return Shape{}, fmt.Errorf("invalid shape %q", text)
	}

	t, err := parseElementType(text[:open])
	if err != nil {
		return Shape{}, fmt.Errorf("invalid shape %q: %w", text, err)
	}

	s := Shape{Type: t}
	body := strings.TrimSpace(text[open+1 : len(text)-1])
	if body == "" {
		return s, nil
	}

	for _, part := range strings.Split(body, ",") {
		d, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || d < 0 {
			return Shape{}, fmt.Errorf("invalid dimension %q in shape %q", part, text)
		}
		s.Dims = append(s.Dims, d)
	}

	return s, nil
}

// Literal is the payload of a constant instruction.
type Literal struct {
	Type   ElementType
	Ints   []int64
	Floats []float64
}

// IntLiteral creates an integer literal of the given type.
func IntLiteral(t ElementType, values ...int64) Literal {
	return Literal{Type: t, Ints: values}
}

// FirstInteger returns the first element of an integer literal. It fails if
// the literal is not of an integer type or holds no elements.
func (l Literal) FirstInteger() (int64, bool) {
	if !l.Type.IsInteger() || len(l.Ints) == 0 {
		return 0, false
	}
	return l.Ints[0], true
}

func (l Literal) String() string {
	var parts []string
	if l.Type == F32 {
		for _, f := range l.Floats {
			parts = append(parts, strconv.FormatFloat(f, 'g', -1, 32))
		}
	} else {
		for _, v := range l.Ints {
			parts = append(parts, strconv.FormatInt(v, 10))
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (l Literal) clone() Literal {
	c := Literal{Type: l.Type}
	if l.Ints != nil {
		c.Ints = append([]int64(nil), l.Ints...)
	}
	if l.Floats != nil {
		c.Floats = append([]float64(nil), l.Floats...)
	}
	return c
}

// SourceTargetPair routes data from the participant Source to the
// participant Target.
type SourceTargetPair struct {
	Source int64
	Target int64
}

func (p SourceTargetPair) String() string {
	return fmt.Sprintf("{%d,%d}", p.Source, p.Target)
}
