package layout_test

import (
	"fmt"

	"github.com/matzehuels/chemlayout/pkg/layout"
	"github.com/matzehuels/chemlayout/pkg/mol/moltest"
)

func ExampleGenerate() {
	m := moltest.Naphthalene()

	r, err := layout.Generate(m, layout.Options{BondLength: 1.5})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("rings: %d in %d system(s)\n", r.Rings, r.RingSystems)
	fmt.Printf("bond length: %.2f to %.2f\n", r.Bond.Min*r.BondLength, r.Bond.Max*r.BondLength)
	fmt.Println("collisions:", r.ResidualCollisions)
	fmt.Println("degraded:", r.Degraded())
	// Output:
	// rings: 2 in 1 system(s)
	// bond length: 1.50 to 1.50
	// collisions: 0
	// degraded: false
}

func ExampleGenerate_skip() {
	m := moltest.Chain(4)
	if _, err := layout.Generate(m, layout.Options{}); err != nil {
		fmt.Println("Error:", err)
		return
	}

	// Coordinates are present now, so a second call leaves them alone.
	r, _ := layout.Generate(m, layout.Options{})
	fmt.Println("skipped:", r.Skipped)

	r, _ = layout.Generate(m, layout.Options{Force: true})
	fmt.Println("skipped with force:", r.Skipped)
	// Output:
	// skipped: true
	// skipped with force: false
}
