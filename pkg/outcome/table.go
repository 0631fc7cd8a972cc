package outcome

// Shorthands keep the tables readable.
const (
	p = Pass
	f = Fail
	e = Error
	u = Unknown
	n = NotApplicable
	k = NotChecked
	s = NotSelected
	i = Informational
	x = Fixed
)

// andTable[a-1][b-1] is AND(a, b). Row and column order is P F E U N K S I X.
var andTable = [9][9]Outcome{
	/*       P  F  E  U  N  K  S  I  X */
	/* P */ {p, f, e, u, p, p, p, p, p},
	/* F */ {f, f, f, f, f, f, f, f, f},
	/* E */ {e, f, e, e, e, e, e, e, e},
	/* U */ {u, f, e, u, u, u, u, u, u},
	/* N */ {p, f, e, u, n, n, n, n, x},
	/* K */ {p, f, e, u, n, k, k, k, x},
	/* S */ {p, f, e, u, n, k, s, s, x},
	/* I */ {p, f, e, u, n, k, s, i, x},
	/* X */ {p, f, e, u, x, x, x, x, x},
}

// orTable[a-1][b-1] is OR(a, b). Row and column order is P F E U N K S I X.
var orTable = [9][9]Outcome{
	/*       P  F  E  U  N  K  S  I  X */
	/* P */ {p, p, p, p, p, p, p, p, p},
	/* F */ {p, f, e, u, f, f, f, f, x},
	/* E */ {p, e, e, e, e, e, e, e, x},
	/* U */ {p, u, e, u, u, u, u, u, x},
	/* N */ {p, f, e, u, n, n, n, n, x},
	/* K */ {p, f, e, u, n, k, k, k, x},
	/* S */ {p, f, e, u, n, k, s, s, x},
	/* I */ {p, f, e, u, n, k, s, i, x},
	/* X */ {p, x, x, x, x, x, x, x, x},
}

// And returns AND(a, b). Invalid inputs yield Unknown.
func And(a, b Outcome) Outcome {
	if !a.Valid() || !b.Valid() {
		return Unknown
	}
	return andTable[a-1][b-1]
}

// Or returns OR(a, b). Invalid inputs yield Unknown.
func Or(a, b Outcome) Outcome {
	if !a.Valid() || !b.Valid() {
		return Unknown
	}
	return orTable[a-1][b-1]
}

// Negate swaps Pass and Fail. Every other outcome is returned unchanged.
func Negate(o Outcome) Outcome {
	switch o {
	case Pass:
		return Fail
	case Fail:
		return Pass
	default:
		return o
	}
}

// Combine applies op to a and b.
func Combine(op Operator, a, b Outcome) Outcome {
	if op == OperatorOr {
		return Or(a, b)
	}
	return And(a, b)
}

// Fold reduces outcomes left to right with op. An empty list folds to
// NotChecked.
func Fold(op Operator, outcomes ...Outcome) Outcome {
	if len(outcomes) == 0 {
		return NotChecked
	}
	acc := outcomes[0]
	for _, o := range outcomes[1:] {
		acc = Combine(op, acc, o)
	}
	return acc
}
