package transform_test

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/osoco/staleguard/core/transform"
)

// Property-based tests for the parameter-name tokenizer: for any list of
// identifiers joined with commas and arbitrary padding, tokenizing recovers
// exactly the identifiers, in order, duplicates included.
func TestSplitParamNames_PropertyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("tokenizing a padded join recovers the names in order", prop.ForAll(
		func(names []string, leftPad, rightPad int) bool {
			if len(names) == 0 {
				return transform.SplitParamNames("") == nil
			}

			pieces := make([]string, len(names))
			for i, name := range names {
				pieces[i] = strings.Repeat(" ", leftPad) + name + strings.Repeat(" ", rightPad)
			}
			got := transform.SplitParamNames(strings.Join(pieces, ","))

			if len(got) != len(names) {
				return false
			}
			for i := range names {
				if got[i] != names[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
		gen.IntRange(0, 4),
		gen.IntRange(0, 4),
	))

	properties.Property("tokenizing never panics and never drops order", prop.ForAll(
		func(raw string) bool {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("SplitParamNames() panicked: %v", r)
				}
			}()

			got := transform.SplitParamNames(raw)
			for _, name := range got {
				if name != strings.TrimSpace(name) {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
