package action

// Annotations is static, declarative information attached to middleware and
// actions (for example required permissions or documentation).
type Annotations map[string]any

// Clone returns a deep copy of a.
func (a Annotations) Clone() Annotations {
	out := make(Annotations, len(a))
	for k, v := range a {
		out[k] = CloneValue(v)
	}
	return out
}

// Merge folds a sequence of annotation maps into one; later keys win.
func Merge(list ...Annotations) Annotations {
	out := Annotations{}
	for _, a := range list {
		for k, v := range a {
			out[k] = v
		}
	}
	return out
}
