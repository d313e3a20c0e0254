// Package insn models method instruction sequences: opcodes, their operands,
// and the structural markers (labels, stack-map frames) that carry no
// semantic weight.
package insn

import (
	"fmt"
	"math"
)

// Kind is the operand shape of an instruction.
type Kind uint8

const (
	KindPlain Kind = iota
	KindInt
	KindVar
	KindType
	KindField
	KindMethod
	KindInvokeDynamic
	KindJump
	KindLabel
	KindLdc
	KindIinc
	KindTableSwitch
	KindLookupSwitch
	KindMultiANewArray
	KindFrame
	KindLine
)

var kindNames = [...]string{
	KindPlain:          "insn",
	KindInt:            "int",
	KindVar:            "var",
	KindType:           "type",
	KindField:          "field",
	KindMethod:         "method",
	KindInvokeDynamic:  "indy",
	KindJump:           "jump",
	KindLabel:          "label",
	KindLdc:            "ldc",
	KindIinc:           "iinc",
	KindTableSwitch:    "tableswitch",
	KindLookupSwitch:   "lookupswitch",
	KindMultiANewArray: "multianewarray",
	KindFrame:          "frame",
	KindLine:           "line",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown instruction kind %q", string(text))
}

// Structural reports whether instructions of this kind are pure markers
// that may be dropped without changing program meaning.
func (k Kind) Structural() bool {
	return k == KindLabel || k == KindFrame
}

// Label identifies a branch target within one instruction sequence.
type Label int

// Insn is one instruction. Only the fields relevant to its Kind are set.
type Insn struct {
	Kind Kind   `json:"kind"`
	Op   Opcode `json:"op"`

	// Operand is the immediate of int instructions and the increment of iinc.
	Operand int `json:"operand,omitempty"`
	// Var is the local variable slot of var and iinc instructions.
	Var int `json:"var,omitempty"`

	// Owner, Name and Desc describe field and method references. Type
	// instructions keep their internal name or array descriptor in Desc, as
	// do multianewarray instructions.
	Owner string `json:"owner,omitempty"`
	Name  string `json:"name,omitempty"`
	Desc  string `json:"desc,omitempty"`
	Itf   bool   `json:"itf,omitempty"`

	// Label is the identity of a label, the target of a jump, or the start
	// label of a line number.
	Label Label `json:"label,omitempty"`
	Line  int   `json:"line,omitempty"`

	Const *Constant `json:"const,omitempty"`

	Min  int   `json:"min,omitempty"`
	Max  int   `json:"max,omitempty"`
	Keys []int `json:"keys,omitempty"`
	Dims int   `json:"dims,omitempty"`

	Bsm     *Handle    `json:"bsm,omitempty"`
	BsmArgs []Constant `json:"bsm_args,omitempty"`
}

func (in Insn) String() string {
	switch in.Kind {
	case KindLabel:
		return fmt.Sprintf("L%d:", in.Label)
	case KindFrame:
		return "FRAME"
	case KindLine:
		return fmt.Sprintf("LINE %d", in.Line)
	case KindField, KindMethod:
		return fmt.Sprintf("%s %s.%s %s", in.Op, in.Owner, in.Name, in.Desc)
	case KindType, KindMultiANewArray:
		return fmt.Sprintf("%s %s", in.Op, in.Desc)
	case KindJump:
		return fmt.Sprintf("%s L%d", in.Op, in.Label)
	case KindVar:
		return fmt.Sprintf("%s %d", in.Op, in.Var)
	case KindInt:
		return fmt.Sprintf("%s %d", in.Op, in.Operand)
	case KindIinc:
		return fmt.Sprintf("%s %d %d", in.Op, in.Var, in.Operand)
	case KindLdc:
		if in.Const != nil {
			return fmt.Sprintf("%s %s", in.Op, in.Const)
		}
	case KindInvokeDynamic:
		return fmt.Sprintf("%s %s %s", in.Op, in.Name, in.Desc)
	}
	return in.Op.String()
}

// Handle tags, as in the constant pool.
const (
	HGetField         = 1
	HGetStatic        = 2
	HPutField         = 3
	HPutStatic        = 4
	HInvokeVirtual    = 5
	HInvokeStatic     = 6
	HInvokeSpecial    = 7
	HNewInvokeSpecial = 8
	HInvokeInterface  = 9
)

// Handle is a method handle constant.
type Handle struct {
	Tag   int    `json:"tag"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Desc  string `json:"desc"`
	Itf   bool   `json:"itf,omitempty"`
}

// InvokesMethod reports whether the handle's dispatch kind targets a method.
func (h Handle) InvokesMethod() bool {
	return h.Tag >= HInvokeVirtual && h.Tag <= HInvokeInterface
}

// IsLambdaMetafactory reports whether h is the standard lambda bootstrap.
func (h Handle) IsLambdaMetafactory() bool {
	return h.Tag == HInvokeStatic &&
		h.Owner == "java/lang/invoke/LambdaMetafactory" &&
		(h.Name == "metafactory" || h.Name == "altMetafactory")
}

func (h Handle) String() string {
	return fmt.Sprintf("%s.%s%s (tag=%d itf=%t)", h.Owner, h.Name, h.Desc, h.Tag, h.Itf)
}

// ConstKind is the runtime kind of a loadable constant.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstLong
	ConstFloat
	ConstDouble
	ConstString
	ConstType
	ConstHandle
)

var constKindNames = [...]string{"int", "long", "float", "double", "string", "type", "handle"}

func (k ConstKind) String() string {
	if int(k) < len(constKindNames) {
		return constKindNames[k]
	}
	return fmt.Sprintf("const(%d)", uint8(k))
}

func (k ConstKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ConstKind) UnmarshalText(text []byte) error {
	for i, name := range constKindNames {
		if name == string(text) {
			*k = ConstKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown constant kind %q", string(text))
}

// Constant is an ldc operand or bootstrap argument. Int and Long use Int,
// Float and Double use Float, String uses Str, Type keeps a field or method
// descriptor in Str.
type Constant struct {
	Kind   ConstKind `json:"kind"`
	Int    int64     `json:"int,omitempty"`
	Float  float64   `json:"float,omitempty"`
	Str    string    `json:"str,omitempty"`
	Handle *Handle   `json:"handle,omitempty"`
}

// Equal compares two plain constants by value. Floating point values compare
// by bit pattern so NaN equals itself and 0.0 differs from -0.0.
func (c Constant) Equal(o Constant) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case ConstInt, ConstLong:
		return c.Int == o.Int
	case ConstFloat, ConstDouble:
		return math.Float64bits(c.Float) == math.Float64bits(o.Float)
	case ConstString, ConstType:
		return c.Str == o.Str
	case ConstHandle:
		if c.Handle == nil || o.Handle == nil {
			return c.Handle == o.Handle
		}
		return *c.Handle == *o.Handle
	}
	return false
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt, ConstLong:
		return fmt.Sprintf("%d", c.Int)
	case ConstFloat, ConstDouble:
		return fmt.Sprintf("%g", c.Float)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstType:
		return c.Str
	case ConstHandle:
		if c.Handle != nil {
			return c.Handle.String()
		}
	}
	return c.Kind.String()
}
