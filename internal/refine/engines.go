package refine

import (
	"fmt"

	"github.com/piwi3910/uldpack/internal/mip"
	"github.com/piwi3910/uldpack/internal/mip/bnb"
	"github.com/piwi3910/uldpack/internal/mip/highs"
)

// Engines lists the accepted engine names.
var Engines = []string{"bnb", "highs"}

// NewEngine returns the MIP engine registered under name. An empty name
// selects bnb.
func NewEngine(name string) (mip.Engine, error) {
	switch name {
	case "", "bnb":
		return bnb.New(), nil
	case "highs":
		return highs.New(), nil
	default:
		return nil, fmt.Errorf("unknown MIP engine %q (want one of %v)", name, Engines)
	}
}
