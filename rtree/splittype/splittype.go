package splittype

type SplitType string

const (
	Linear    SplitType = "linear"
	Quadratic SplitType = "quadratic"
)

// Valid reports whether s names a known split heuristic.
func (s SplitType) Valid() bool {
	return s == Linear || s == Quadratic
}
