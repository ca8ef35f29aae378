package runquery

import (
	"fmt"
	"time"
)

// ValidationResult reports whether a filter looks satisfiable.
//
// Warnings flag terms that are syntactically fine but cannot match any
// run: an empty hash, a zero time cutoff, a Since/Until pair that
// excludes everything. Such filters still execute and simply return no
// rows; the warnings exist so the CLI can tell the user why a listing
// came back empty.
type ValidationResult struct {
	// OK is true when the filter produced no warnings.
	OK bool

	// Warnings lists suspect terms. Empty when OK is true.
	Warnings []string
}

// programHashLen is the hex length of a SHA-256 program hash.
const programHashLen = 64

// Validate checks a filter for terms that cannot match any recorded run.
//
// Validation is advisory: a filter with warnings still compiles and
// executes. Validate is a pure function with no side effects.
func Validate(f Filter) ValidationResult {
	v := &validator{}
	v.validateFilter(f)
	v.checkTimeWindow(f)

	return ValidationResult{
		OK:       len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateFilter recursively validates one filter term.
func (v *validator) validateFilter(f Filter) {
	switch term := f.(type) {
	case nil:
		v.addWarning("nil filter - use an empty All to match every run")
	case ProgramIs:
		v.validateProgramIs(term)
	case *ProgramIs:
		v.validateProgramIs(*term)
	case SourceIs:
		v.validateSourceIs(term)
	case *SourceIs:
		v.validateSourceIs(*term)
	case Since:
		v.validateCutoff("Since", term.Cutoff)
	case *Since:
		v.validateCutoff("Since", term.Cutoff)
	case Until:
		v.validateCutoff("Until", term.Cutoff)
	case *Until:
		v.validateCutoff("Until", term.Cutoff)
	case MinSteps, *MinSteps:
		// Any floor is satisfiable; zero matches everything.
	case All:
		v.validateAll(term)
	case *All:
		v.validateAll(*term)
	default:
		v.addWarning("unknown filter type: %T", f)
	}
}

func (v *validator) validateProgramIs(term ProgramIs) {
	if term.Hash == "" {
		v.addWarning("empty program hash matches no run")
		return
	}
	if len(term.Hash) != programHashLen || !isLowerHex(term.Hash) {
		v.addWarning("program hash %q is not %d lowercase hex characters", term.Hash, programHashLen)
	}
}

func (v *validator) validateSourceIs(term SourceIs) {
	if term.Path == "" {
		v.addWarning("empty source path matches no run (stdin records as \"-\")")
	}
}

func (v *validator) validateCutoff(name string, cutoff time.Time) {
	if cutoff.IsZero() {
		v.addWarning("%s has a zero cutoff", name)
	}
}

func (v *validator) validateAll(all All) {
	for _, term := range all.Filters {
		v.validateFilter(term)
	}
}

// checkTimeWindow flags a conjunction whose Since and Until terms leave
// an empty window. Terms are gathered across nested Alls, since the
// conjunction of everything is what executes.
func (v *validator) checkTimeWindow(f Filter) {
	var earliest, latest time.Time
	gatherTimeBounds(f, &earliest, &latest)
	if !earliest.IsZero() && !latest.IsZero() && earliest.After(latest) {
		v.addWarning("time window is empty: Since %s is after Until %s",
			earliest.Format(time.RFC3339), latest.Format(time.RFC3339))
	}
}

// gatherTimeBounds records the tightest Since and Until cutoffs in f.
func gatherTimeBounds(f Filter, earliest, latest *time.Time) {
	switch term := f.(type) {
	case Since:
		if term.Cutoff.After(*earliest) {
			*earliest = term.Cutoff
		}
	case *Since:
		gatherTimeBounds(*term, earliest, latest)
	case Until:
		if latest.IsZero() || term.Cutoff.Before(*latest) {
			*latest = term.Cutoff
		}
	case *Until:
		gatherTimeBounds(*term, earliest, latest)
	case All:
		for _, sub := range term.Filters {
			gatherTimeBounds(sub, earliest, latest)
		}
	case *All:
		gatherTimeBounds(*term, earliest, latest)
	}
}

// isLowerHex reports whether s consists only of [0-9a-f].
func isLowerHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
