package core_test

import (
	"fmt"

	"github.com/cwbudde/algo-comp/dsp/core"
)

func ExampleLinearToDB() {
	fmt.Printf("%.1f\n", core.LinearToDB(0.1))
	fmt.Printf("%.1f\n", core.LinearToDB(0))

	// Output:
	// -20.0
	// -144.0
}

func ExampleEnsureLen() {
	buf := make([]float64, 2, 4)
	buf[0], buf[1] = 1, 2
	buf = core.EnsureLen(buf, 4)
	fmt.Println(len(buf), cap(buf), buf)

	// Output:
	// 4 4 [1 2 0 0]
}
