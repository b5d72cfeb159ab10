package venn

// Point is a position in the unit square, origin top-left
type Point struct{ X, Y float64 }

// Circle is one set's disc
type Circle struct {
	Center Point
	Radius float64
	// NameAt is where the set name is written
	NameAt Point
}

// Layout holds the fixed geometry for a 2- or 3-set diagram
type Layout struct {
	Circles []Circle
	// Labels maps region ids to their count position
	Labels map[string]Point
	// Emphasized is the full-intersection region drawn larger and boxed
	Emphasized string
}

const (
	radius2 = 0.26
	radius3 = 0.24
)

// LayoutFor returns the layout of an n-set diagram (n is 2 or 3)
func LayoutFor(n int) Layout {
	if n == 2 {
		return Layout{
			Circles: []Circle{
				{Center: Point{0.36, 0.52}, Radius: radius2, NameAt: Point{0.24, 0.18}},
				{Center: Point{0.64, 0.52}, Radius: radius2, NameAt: Point{0.76, 0.18}},
			},
			Labels: map[string]Point{
				"only_a":  {0.24, 0.52},
				"only_b":  {0.76, 0.52},
				"a_and_b": {0.50, 0.52},
			},
			Emphasized: "a_and_b",
		}
	}
	return Layout{
		Circles: []Circle{
			{Center: Point{0.38, 0.40}, Radius: radius3, NameAt: Point{0.20, 0.09}},
			{Center: Point{0.62, 0.40}, Radius: radius3, NameAt: Point{0.80, 0.09}},
			{Center: Point{0.50, 0.62}, Radius: radius3, NameAt: Point{0.50, 0.93}},
		},
		Labels: map[string]Point{
			"only_a":        {0.28, 0.33},
			"only_b":        {0.72, 0.33},
			"only_c":        {0.50, 0.76},
			"a_and_b":       {0.50, 0.29},
			"a_and_c":       {0.37, 0.56},
			"b_and_c":       {0.63, 0.56},
			"a_and_b_and_c": {0.50, 0.46},
		},
		Emphasized: "a_and_b_and_c",
	}
}
