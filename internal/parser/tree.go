package parser

// BlockSpan is a resolved block: the indices of its head and tail elements in
// the passage element list, and the semantic key of its enclosing block.
type BlockSpan struct {
	Key       string
	ParentKey string
	Type      ElementType
	Name      string
	Level     int
	Head      int
	Tail      int
	PosStart  int
	PosEnd    int
}

// Blocks lists the blocks of a resolved passage in head order.
// Elements must have been annotated by ResolveBlocks.
func Blocks(elements []Element) []BlockSpan {
	var spans []BlockSpan
	var open []int
	for i, e := range elements {
		switch {
		case e.Block.IsHead():
			parent := ""
			if len(open) > 0 {
				parent = spans[open[len(open)-1]].Key
			}
			spans = append(spans, BlockSpan{
				Key:       e.BlockSemanticKey,
				ParentKey: parent,
				Type:      e.Type,
				Name:      e.BlockName,
				Level:     e.Level,
				Head:      i,
				Tail:      -1,
				PosStart:  e.PosStart,
			})
			open = append(open, len(spans)-1)
		case e.Block.IsTail():
			if len(open) == 0 {
				continue
			}
			s := &spans[open[len(open)-1]]
			s.Tail = i
			s.PosEnd = e.PosEnd
			open = open[:len(open)-1]
		}
	}
	return spans
}

// TailIndex maps the index of every block head to the index of its tail.
func TailIndex(elements []Element) map[int]int {
	tails := make(map[int]int)
	for _, b := range Blocks(elements) {
		if b.Tail >= 0 {
			tails[b.Head] = b.Tail
		}
	}
	return tails
}
