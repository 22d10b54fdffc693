package filter

// Reduce simplifies e in one bottom-up pass.
//
// Two rewrites apply: not(not(x)) collapses to x, and a binary node whose
// reduced children are both negated becomes the negation of the flipped
// operator over the inner expressions (De Morgan). A binary node with only one
// negated side is left as is, so the result is not a normal form. Reduce
// preserves Eval for every identity and is idempotent. A nil Expr reduces to nil.
func Reduce(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case And:
		l, r := Reduce(n.Left), Reduce(n.Right)
		if ln, ok := l.(Not); ok {
			if rn, ok := r.(Not); ok {
				return Not{Inner: Or{Left: ln.Inner, Right: rn.Inner}}
			}
		}
		return And{Left: l, Right: r}
	case Or:
		l, r := Reduce(n.Left), Reduce(n.Right)
		if ln, ok := l.(Not); ok {
			if rn, ok := r.(Not); ok {
				return Not{Inner: And{Left: ln.Inner, Right: rn.Inner}}
			}
		}
		return Or{Left: l, Right: r}
	case Not:
		inner := Reduce(n.Inner)
		if nn, ok := inner.(Not); ok {
			return nn.Inner
		}
		return Not{Inner: inner}
	default:
		return e
	}
}
