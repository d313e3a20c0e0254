package insn

import (
	"fmt"
	"strings"
)

// Sort classifies a descriptor.
type Sort uint8

const (
	SortInvalid Sort = iota
	SortVoid
	SortPrimitive
	SortObject
	SortArray
	SortMethod
)

// TypeSort classifies a field or method descriptor.
func TypeSort(desc string) Sort {
	if desc == "" {
		return SortInvalid
	}
	switch desc[0] {
	case 'V':
		if len(desc) == 1 {
			return SortVoid
		}
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		if len(desc) == 1 {
			return SortPrimitive
		}
	case 'L':
		if len(desc) > 2 && desc[len(desc)-1] == ';' {
			return SortObject
		}
	case '[':
		return SortArray
	case '(':
		return SortMethod
	}
	return SortInvalid
}

// ElementType strips array dimensions from a field descriptor.
func ElementType(desc string) (elem string, dims int) {
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	return desc[dims:], dims
}

// ClassName returns the internal name of an object descriptor.
func ClassName(desc string) (string, bool) {
	if TypeSort(desc) != SortObject {
		return "", false
	}
	return desc[1 : len(desc)-1], true
}

// RefDesc turns the operand of a type instruction, which is either an
// internal name or an array descriptor, into a field descriptor.
func RefDesc(nameOrDesc string) string {
	if strings.HasPrefix(nameOrDesc, "[") {
		return nameOrDesc
	}
	return "L" + nameOrDesc + ";"
}

// SplitMethodDesc returns the argument and return descriptors of a method
// descriptor.
func SplitMethodDesc(desc string) (args []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("method descriptor %q: missing '('", desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescLen(desc[i:])
		if err != nil {
			return nil, "", fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		args = append(args, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("method descriptor %q: missing ')'", desc)
	}
	ret = desc[i+1:]
	if ret != "V" {
		if n, err := fieldDescLen(ret); err != nil || n != len(ret) {
			return nil, "", fmt.Errorf("method descriptor %q: bad return type", desc)
		}
	}
	return args, ret, nil
}

func fieldDescLen(s string) (int, error) {
	dims := 0
	for dims < len(s) && s[dims] == '[' {
		dims++
	}
	if dims >= len(s) {
		return 0, fmt.Errorf("truncated type in %q", s)
	}
	switch s[dims] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return dims + 1, nil
	case 'L':
		end := strings.IndexByte(s[dims:], ';')
		if end < 2 {
			return 0, fmt.Errorf("unterminated class type in %q", s)
		}
		return dims + end + 1, nil
	}
	return 0, fmt.Errorf("unexpected %q in %q", s[dims], s)
}

// MapClassNames rewrites every class name inside a field or method
// descriptor through rename.
func MapClassNames(desc string, rename func(string) string) string {
	var sb strings.Builder
	sb.Grow(len(desc))
	for i := 0; i < len(desc); i++ {
		c := desc[i]
		sb.WriteByte(c)
		if c != 'L' {
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			sb.WriteString(desc[i+1:])
			break
		}
		sb.WriteString(rename(desc[i+1 : i+end]))
		sb.WriteByte(';')
		i += end
	}
	return sb.String()
}
