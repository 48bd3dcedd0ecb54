package diag

// Bag is the append-only diagnostics collector of one resolution pass.
// Order is insertion order; nothing is sorted or deduplicated.
type Bag struct {
	items []Diagnostic
}

func NewBag(hint int) *Bag {
	if hint < 0 {
		hint = 0
	}
	return &Bag{items: make([]Diagnostic, 0, hint)}
}

func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

// HasErrors reports whether anything was collected; every diagnostic is an error.
func (b *Bag) HasErrors() bool {
	return b != nil && len(b.items) > 0
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Items возвращает срез диагностик только для чтения.
// Не модифицируйте его: он указывает на внутренний массив Bag.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

// Merge appends other's diagnostics after b's, keeping both orders.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

// Count returns how many diagnostics of kind k were collected.
func (b *Bag) Count(k Kind) int {
	n := 0
	for i := range b.Items() {
		if b.items[i].Kind == k {
			n++
		}
	}
	return n
}

// ForNode returns the diagnostics scoped to node, in order.
func (b *Bag) ForNode(node string) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.Items() {
		if d.Node == node {
			out = append(out, d)
		}
	}
	return out
}
