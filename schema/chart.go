package schema

// ChartKind is the visual form of a chart.
type ChartKind string

const (
	ChartBar       ChartKind = "bar"
	ChartLine      ChartKind = "line"
	ChartPie       ChartKind = "pie"
	ChartDoughnut  ChartKind = "doughnut"
	ChartRadar     ChartKind = "radar"
	ChartPolarArea ChartKind = "polarArea"
)

// Valid reports whether k is one of the known chart kinds. The extractor does
// not enforce this; renderers may.
func (k ChartKind) Valid() bool {
	switch k {
	case ChartBar, ChartLine, ChartPie, ChartDoughnut, ChartRadar, ChartPolarArea:
		return true
	}
	return false
}

// ChartSpec describes a chart for a downstream renderer.
// len(Data) == len(Labels) always holds for specs handed out by the extractor.
type ChartSpec struct {
	Kind   ChartKind `json:"type"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// PlaceholderChart is returned whenever a real chart spec cannot be produced.
func PlaceholderChart() ChartSpec {
	return ChartSpec{
		Kind:   ChartBar,
		Title:  "Sample Chart",
		Labels: []string{"A", "B", "C"},
		Data:   []float64{10, 20, 15},
	}
}
