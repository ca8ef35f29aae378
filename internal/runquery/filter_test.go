package runquery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilter_SealedInterface(t *testing.T) {
	// Every term implements Filter; the backend's type switch covers
	// exactly this set.
	terms := []Filter{
		ProgramIs{Hash: "abc"},
		SourceIs{Path: "hello.b"},
		Since{Cutoff: time.Unix(0, 0)},
		Until{Cutoff: time.Unix(0, 0)},
		MinSteps{Steps: 10},
		All{},
	}

	for _, f := range terms {
		switch f.(type) {
		case ProgramIs, SourceIs, Since, Until, MinSteps, All:
			// OK
		default:
			t.Fatalf("unexpected filter type %T", f)
		}
	}
}

func TestAll_Construction(t *testing.T) {
	window := All{Filters: []Filter{
		SourceIs{Path: "mandelbrot.b"},
		Since{Cutoff: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		Until{Cutoff: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}}

	assert.Len(t, window.Filters, 3)
	assert.IsType(t, SourceIs{}, window.Filters[0])
}

func TestAll_Nested(t *testing.T) {
	// Conjunctions nest; flattening is the backend's business.
	inner := All{Filters: []Filter{MinSteps{Steps: 100}}}
	outer := All{Filters: []Filter{SourceIs{Path: "primes.b"}, inner}}

	assert.Len(t, outer.Filters, 2)
	assert.IsType(t, All{}, outer.Filters[1])
}

func TestFilter_MarkerMethodExists(t *testing.T) {
	ProgramIs{}.filterTerm()
	SourceIs{}.filterTerm()
	Since{}.filterTerm()
	Until{}.filterTerm()
	MinSteps{}.filterTerm()
	All{}.filterTerm()
}
