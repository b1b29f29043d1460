// Command validate performs offline integrity checks on an AQI breakpoint
// table before it is deployed: structural coverage, boundary exactness,
// monotonicity of the concentration-to-index mapping, and alignment between
// index bands and advisory categories.
//
// Usage:
//
//	go run ./cmd/validate                      # check the built-in EPA table
//	go run ./cmd/validate -table custom.json   # check an operator override
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/airlens/aqi-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	tablePath := flag.String("table", "", "path to a breakpoint table JSON file (defaults to the built-in EPA table)")
	flag.Parse()

	if code := run(*tablePath); code != 0 {
		os.Exit(code)
	}
}

func run(tablePath string) int {
	fmt.Println("=== Breakpoint Table Integrity Validation ===")
	fmt.Println()

	var table domain.Table
	if tablePath == "" {
		table = domain.DefaultTable()
		fmt.Println("Table: built-in EPA defaults")
	} else {
		var err error
		table, err = domain.LoadTable(tablePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load table %s: %v\n", tablePath, err)
			return 1
		}
		fmt.Printf("Table: %s\n", tablePath)
	}

	phases := []*phase{
		validateStructure(table),
		validateBoundaries(table),
		validateMonotonicity(table),
		validateCategoryAlignment(table),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──
// Re-runs the domain-level validation: all six pollutants present, segments
// start at zero, no gaps or overlaps, contiguous index ranges up to 500.

func validateStructure(table domain.Table) *phase {
	p := &phase{name: "Phase 1: Structure (coverage, contiguity)"}
	if err := table.Validate(); err != nil {
		p.errorf("%v", err)
	}
	return p
}

// ── Phase 2: Boundary Exactness ──
// Every segment endpoint must map to exactly its declared index, and the
// first concentration past a segment must land on the next segment's low
// index rather than interpolate across the gap.

func validateBoundaries(table domain.Table) *phase {
	p := &phase{name: "Phase 2: Boundary Exactness"}

	for _, pollutant := range domain.PollutantPriority {
		segs := table.Segments(pollutant)
		prec := domain.Precision(pollutant)

		for i, seg := range segs {
			checkIndexAt(p, table, pollutant, seg.ConcLow, seg.IndexLow)
			checkIndexAt(p, table, pollutant, seg.ConcHigh, seg.IndexHigh)

			if i+1 < len(segs) {
				checkIndexAt(p, table, pollutant, seg.ConcHigh+prec, segs[i+1].IndexLow)
			}
		}

		if len(segs) > 0 {
			// Concentrations beyond the table clamp to the scale top.
			top := segs[len(segs)-1].ConcHigh
			checkIndexAt(p, table, pollutant, top+10*prec, domain.MaxIndex)
		}
	}
	return p
}

func checkIndexAt(p *phase, table domain.Table, pollutant domain.Pollutant, conc float64, want int) {
	si, err := table.SubIndexFor(pollutant, conc)
	if err != nil {
		p.errorf("%s at %g: %v", pollutant, conc, err)
		return
	}
	if si.Value != want {
		p.errorf("%s at %g: expected index %d, got %d", pollutant, conc, want, si.Value)
	}
}

// ── Phase 3: Monotonicity ──
// Sweeps each pollutant's full range in half-precision steps and checks the
// index never decreases as concentration rises.

func validateMonotonicity(table domain.Table) *phase {
	p := &phase{name: "Phase 3: Monotonicity"}

	for _, pollutant := range domain.PollutantPriority {
		segs := table.Segments(pollutant)
		if len(segs) == 0 {
			continue
		}
		prec := domain.Precision(pollutant)
		top := segs[len(segs)-1].ConcHigh + 10*prec

		prev := -1
		for c := 0.0; c <= top; c += prec / 2 {
			si, err := table.SubIndexFor(pollutant, c)
			if err != nil {
				p.errorf("%s at %g: %v", pollutant, c, err)
				break
			}
			if si.Value < prev {
				p.errorf("%s at %g: index dropped from %d to %d", pollutant, c, prev, si.Value)
				break
			}
			prev = si.Value
		}
	}
	return p
}

// ── Phase 4: Category Alignment ──
// Each segment's index range must fall inside a single advisory category,
// and every category must carry advisory text.

func validateCategoryAlignment(table domain.Table) *phase {
	p := &phase{name: "Phase 4: Category Alignment"}

	for _, pollutant := range domain.PollutantPriority {
		for _, seg := range table.Segments(pollutant) {
			low := domain.Classify(seg.IndexLow)
			high := domain.Classify(seg.IndexHigh)
			if low != high {
				p.errorf("%s segment [%g, %g]: index range %d-%d spans categories %q and %q",
					pollutant, seg.ConcLow, seg.ConcHigh, seg.IndexLow, seg.IndexHigh, low, high)
			}
		}
	}

	for _, category := range []domain.Category{
		domain.CategoryGood,
		domain.CategoryModerate,
		domain.CategoryUnhealthySensitive,
		domain.CategoryUnhealthy,
		domain.CategoryVeryUnhealthy,
		domain.CategoryHazardous,
	} {
		if domain.AdvisoryFor(category) == "" {
			p.errorf("category %q has no advisory text", category)
		}
	}
	return p
}
