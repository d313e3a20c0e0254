package insn

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode is a JVM opcode. Structural markers (labels, frames, line numbers)
// carry NoOp.
type Opcode int

const NoOp Opcode = -1

// Opcodes referenced by name in this module. The full table lives in
// opcodeNames.
const (
	NOP             Opcode = 0
	ACONST_NULL     Opcode = 1
	ICONST_0        Opcode = 3
	ICONST_1        Opcode = 4
	BIPUSH          Opcode = 16
	SIPUSH          Opcode = 17
	LDC             Opcode = 18
	ILOAD           Opcode = 21
	ALOAD           Opcode = 25
	ISTORE          Opcode = 54
	ASTORE          Opcode = 58
	IADD            Opcode = 96
	IINC            Opcode = 132
	IFEQ            Opcode = 153
	IFNE            Opcode = 154
	IF_ICMPGE       Opcode = 162
	GOTO            Opcode = 167
	TABLESWITCH     Opcode = 170
	LOOKUPSWITCH    Opcode = 171
	IRETURN         Opcode = 172
	ARETURN         Opcode = 176
	RETURN          Opcode = 177
	GETSTATIC       Opcode = 178
	PUTSTATIC       Opcode = 179
	GETFIELD        Opcode = 180
	PUTFIELD        Opcode = 181
	INVOKEVIRTUAL   Opcode = 182
	INVOKESPECIAL   Opcode = 183
	INVOKESTATIC    Opcode = 184
	INVOKEINTERFACE Opcode = 185
	INVOKEDYNAMIC   Opcode = 186
	NEW             Opcode = 187
	NEWARRAY        Opcode = 188
	ANEWARRAY       Opcode = 189
	CHECKCAST       Opcode = 192
	INSTANCEOF      Opcode = 193
	MULTIANEWARRAY  Opcode = 197
	IFNULL          Opcode = 198
	IFNONNULL       Opcode = 199
)

var opcodeNames = [...]string{
	"NOP", "ACONST_NULL", "ICONST_M1", "ICONST_0", "ICONST_1", "ICONST_2", "ICONST_3", "ICONST_4",
	"ICONST_5", "LCONST_0", "LCONST_1", "FCONST_0", "FCONST_1", "FCONST_2", "DCONST_0", "DCONST_1",
	"BIPUSH", "SIPUSH", "LDC", "LDC_W", "LDC2_W", "ILOAD", "LLOAD", "FLOAD",
	"DLOAD", "ALOAD", "ILOAD_0", "ILOAD_1", "ILOAD_2", "ILOAD_3", "LLOAD_0", "LLOAD_1",
	"LLOAD_2", "LLOAD_3", "FLOAD_0", "FLOAD_1", "FLOAD_2", "FLOAD_3", "DLOAD_0", "DLOAD_1",
	"DLOAD_2", "DLOAD_3", "ALOAD_0", "ALOAD_1", "ALOAD_2", "ALOAD_3", "IALOAD", "LALOAD",
	"FALOAD", "DALOAD", "AALOAD", "BALOAD", "CALOAD", "SALOAD", "ISTORE", "LSTORE",
	"FSTORE", "DSTORE", "ASTORE", "ISTORE_0", "ISTORE_1", "ISTORE_2", "ISTORE_3", "LSTORE_0",
	"LSTORE_1", "LSTORE_2", "LSTORE_3", "FSTORE_0", "FSTORE_1", "FSTORE_2", "FSTORE_3", "DSTORE_0",
	"DSTORE_1", "DSTORE_2", "DSTORE_3", "ASTORE_0", "ASTORE_1", "ASTORE_2", "ASTORE_3", "IASTORE",
	"LASTORE", "FASTORE", "DASTORE", "AASTORE", "BASTORE", "CASTORE", "SASTORE", "POP",
	"POP2", "DUP", "DUP_X1", "DUP_X2", "DUP2", "DUP2_X1", "DUP2_X2", "SWAP",
	"IADD", "LADD", "FADD", "DADD", "ISUB", "LSUB", "FSUB", "DSUB",
	"IMUL", "LMUL", "FMUL", "DMUL", "IDIV", "LDIV", "FDIV", "DDIV",
	"IREM", "LREM", "FREM", "DREM", "INEG", "LNEG", "FNEG", "DNEG",
	"ISHL", "LSHL", "ISHR", "LSHR", "IUSHR", "LUSHR", "IAND", "LAND",
	"IOR", "LOR", "IXOR", "LXOR", "IINC", "I2L", "I2F", "I2D",
	"L2I", "L2F", "L2D", "F2I", "F2L", "F2D", "D2I", "D2L",
	"D2F", "I2B", "I2C", "I2S", "LCMP", "FCMPL", "FCMPG", "DCMPL",
	"DCMPG", "IFEQ", "IFNE", "IFLT", "IFGE", "IFGT", "IFLE", "IF_ICMPEQ",
	"IF_ICMPNE", "IF_ICMPLT", "IF_ICMPGE", "IF_ICMPGT", "IF_ICMPLE", "IF_ACMPEQ", "IF_ACMPNE", "GOTO",
	"JSR", "RET", "TABLESWITCH", "LOOKUPSWITCH", "IRETURN", "LRETURN", "FRETURN", "DRETURN",
	"ARETURN", "RETURN", "GETSTATIC", "PUTSTATIC", "GETFIELD", "PUTFIELD", "INVOKEVIRTUAL", "INVOKESPECIAL",
	"INVOKESTATIC", "INVOKEINTERFACE", "INVOKEDYNAMIC", "NEW", "NEWARRAY", "ANEWARRAY", "ARRAYLENGTH", "ATHROW",
	"CHECKCAST", "INSTANCEOF", "MONITORENTER", "MONITOREXIT", "WIDE", "MULTIANEWARRAY", "IFNULL", "IFNONNULL",
	"GOTO_W", "JSR_W",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for i, name := range opcodeNames {
		m[name] = Opcode(i)
	}
	return m
}()

func (o Opcode) String() string {
	if o == NoOp {
		return "none"
	}
	if o >= 0 && int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return "op" + strconv.Itoa(int(o))
}

func (o Opcode) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText accepts an opcode mnemonic (any case), a decimal opcode, or
// "none" for structural markers.
func (o *Opcode) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	if s == "" || s == "NONE" {
		*o = NoOp
		return nil
	}
	if op, ok := opcodesByName[s]; ok {
		*o = op
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return fmt.Errorf("unknown opcode %q", string(text))
	}
	*o = Opcode(n)
	return nil
}
