package etf

// Equal implements the structural equality spec.md §8 requires for the
// round-trip property: atoms by value+encoding, small/big integers
// numerically, binaries by bytes+bit-width, lists by element equality and
// properness, maps by multiset of pairs.
func Equal(a, b Term) bool {
	switch av := a.(type) {
	case Atom:
		bv, ok := b.(Atom)
		return ok && av.Equal(bv)
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case undefinedT:
		_, ok := b.(undefinedT)
		return ok
	case Integer:
		bv, ok := b.(Integer)
		return ok && av.Equal(bv)
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Binary:
		bv, ok := b.(Binary)
		return ok && av.Equal(bv)
	case Str:
		bv, ok := b.(Str)
		return ok && string(av) == string(bv)
	case List:
		bv, ok := b.(List)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		if (av.Tail == nil) != (bv.Tail == nil) {
			return false
		}
		if av.Tail != nil {
			return Equal(av.Tail, bv.Tail)
		}
		return true
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		used := make([]bool, len(bv))
		for _, pa := range av {
			found := false
			for j, pb := range bv {
				if used[j] {
					continue
				}
				if Equal(pa.Key, pb.Key) && Equal(pa.Value, pb.Value) {
					used[j] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case Pid:
		bv, ok := b.(Pid)
		return ok && av.ID == bv.ID && av.Serial == bv.Serial && av.Creation == bv.Creation &&
			av.Old == bv.Old && av.Node.Equal(bv.Node)
	case Port:
		bv, ok := b.(Port)
		return ok && av.ID == bv.ID && av.Creation == bv.Creation && av.Old == bv.Old && av.Node.Equal(bv.Node)
	case Reference:
		bv, ok := b.(Reference)
		if !ok || av.Creation != bv.Creation || av.Newer != bv.Newer || !av.Node.Equal(bv.Node) {
			return false
		}
		if len(av.ID) != len(bv.ID) {
			return false
		}
		for i := range av.ID {
			if av.ID[i] != bv.ID[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}
