package insn

// Body is an instruction sequence with labels and frames removed. Jump
// targets and original positions stay addressable.
type Body struct {
	Insns []Insn

	targets map[Label]int
	source  []int
}

// Strip filters structural markers out of list. The input is reused without
// copying when it holds no labels or frames.
func Strip(list []Insn) *Body {
	structural := 0
	for _, in := range list {
		if in.Kind.Structural() {
			structural++
		}
	}
	if structural == 0 {
		return &Body{Insns: list}
	}

	b := &Body{
		Insns:   make([]Insn, 0, len(list)-structural),
		targets: make(map[Label]int),
		source:  make([]int, 0, len(list)-structural),
	}
	var pending []Label
	for i, in := range list {
		switch in.Kind {
		case KindLabel:
			pending = append(pending, in.Label)
			continue
		case KindFrame:
			continue
		}
		for _, l := range pending {
			b.targets[l] = len(b.Insns)
		}
		pending = pending[:0]
		b.Insns = append(b.Insns, in)
		b.source = append(b.source, i)
	}
	// Labels after the last instruction point one past the end.
	for _, l := range pending {
		b.targets[l] = len(b.Insns)
	}
	return b
}

// Len is the number of retained instructions.
func (b *Body) Len() int {
	return len(b.Insns)
}

// Target returns the index of the first retained instruction at or after
// label l, or -1 if the label is unknown.
func (b *Body) Target(l Label) int {
	if b.targets == nil {
		return -1
	}
	if i, ok := b.targets[l]; ok {
		return i
	}
	return -1
}

// Source maps a retained index back to its index in the unfiltered list.
func (b *Body) Source(i int) int {
	if b.source == nil {
		return i
	}
	return b.source[i]
}

// Lines returns the line numbers of all line markers in order.
func (b *Body) Lines() []int {
	var lines []int
	for _, in := range b.Insns {
		if in.Kind == KindLine {
			lines = append(lines, in.Line)
		}
	}
	return lines
}
