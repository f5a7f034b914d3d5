package aggregator

import (
	"fmt"
	"testing"

	"github.com/atikulmunna/lograte/internal/model"
	"github.com/atikulmunna/lograte/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newDefault() *Aggregator {
	return New(parser.MustExtractor(""), parser.NewKeyword(""))
}

// feed runs lines through a and returns every emitted bucket.
func feed(a *Aggregator, lines ...string) []model.Bucket {
	var out []model.Bucket
	for _, l := range lines {
		if b, ok := a.Advance(l); ok {
			out = append(out, b)
		}
	}
	return out
}

func TestScenarioFromThreeLines(t *testing.T) {
	a := newDefault()

	got := feed(a,
		"2024-01-01 10:15:00-00 Error: disk full",
		"2024-01-01 10:42:00-00 Info: ok",
		"2024-01-01 11:00:05-00 Error: timeout",
	)

	require.Len(t, got, 1)
	assert.Equal(t, model.Bucket{Key: model.Key{Date: "2024-01-01", Hour: "10"}, ErrorCount: 1}, got[0])

	// The 11 bucket is never emitted, but its error reaches the totals.
	assert.Equal(t, model.Totals{Entries: 2, Errors: 2}, a.Totals())

	pending, ok := a.Pending()
	require.True(t, ok)
	assert.Equal(t, model.Bucket{Key: model.Key{Date: "2024-01-01", Hour: "11"}, ErrorCount: 1}, pending)
}

func TestEmptyStateNoEmission(t *testing.T) {
	a := newDefault()

	_, ok := a.Pending()
	assert.False(t, ok)

	b, ok := a.Advance("2024-01-01 10:00:00-00 Error: first")
	assert.False(t, ok, "opening the first bucket emits nothing")
	assert.Equal(t, model.Bucket{}, b)

	pending, ok := a.Pending()
	require.True(t, ok)
	assert.Equal(t, 1, pending.ErrorCount)
}

func TestLinesWithoutTimestampIgnored(t *testing.T) {
	a := newDefault()

	got := feed(a,
		"Error: no timestamp",
		"2024-01-01 10:00:00-00 Info: start",
		"Error: stack trace line",
		"   at main.go:12 Error",
		"2024-01-01 10:05:00-00 Info: still fine",
	)

	assert.Empty(t, got)
	assert.Equal(t, model.Totals{}, a.Totals())
	pending, _ := a.Pending()
	assert.Equal(t, 0, pending.ErrorCount)
}

func TestWhitespaceRemainderStillBucketed(t *testing.T) {
	a := newDefault()

	got := feed(a,
		"2024-01-01 09:00:00-00 Error: a",
		"2024-01-01 10:00:00-00    ",
		"2024-01-01 11:00:00-00",
	)

	require.Len(t, got, 2)
	assert.Equal(t, "09", got[0].Key.Hour)
	assert.Equal(t, 1, got[0].ErrorCount)
	assert.Equal(t, "10", got[1].Key.Hour)
	assert.Equal(t, 0, got[1].ErrorCount)
}

func TestKeywordCaseSensitive(t *testing.T) {
	a := newDefault()

	feed(a,
		"2024-01-01 10:00:00-00 error: lowercase",
		"2024-01-01 10:00:01-00 ERROR: uppercase",
	)

	assert.Equal(t, 0, a.Totals().Errors)
}

func TestSameHourDifferentDayIsNewBucket(t *testing.T) {
	a := newDefault()

	got := feed(a,
		"2024-01-01 10:00:00-00 Error: day one",
		"2024-01-02 10:00:00-00 Error: day two",
	)

	require.Len(t, got, 1)
	assert.Equal(t, model.Key{Date: "2024-01-01", Hour: "10"}, got[0].Key)
}

func TestReturningKeyOpensFreshBucket(t *testing.T) {
	a := newDefault()

	got := feed(a,
		"2024-01-01 10:00:00-00 Error: a",
		"2024-01-01 11:00:00-00 Error: b",
		"2024-01-01 10:30:00-00 Error: c",
		"2024-01-01 12:00:00-00 Info: d",
	)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"10", "11", "10"}, []string{got[0].Key.Hour, got[1].Key.Hour, got[2].Key.Hour})
	for _, b := range got {
		assert.Equal(t, 1, b.ErrorCount)
	}
}

func TestCustomMatcher(t *testing.T) {
	a := New(parser.MustExtractor(""), parser.NewKeyword("timeout"))

	feed(a,
		"2024-01-01 10:00:00-00 Error: disk full",
		"2024-01-01 10:01:00-00 Warn: timeout talking to db",
	)

	assert.Equal(t, 1, a.Totals().Errors)
}

// genLine draws either a timestamped line in a small key space or a line
// with no timestamp at all.
func genLine(t *rapid.T) string {
	body := rapid.SampledFrom([]string{"Error: boom", "Info: ok", "", "error: quiet", "xError"}).Draw(t, "body")
	if rapid.IntRange(0, 4).Draw(t, "plain") == 0 {
		return "no timestamp " + body
	}
	day := rapid.IntRange(1, 2).Draw(t, "day")
	hour := rapid.IntRange(0, 2).Draw(t, "hour")
	return fmt.Sprintf("2024-01-%02d %02d:%02d:00-00 %s", day, hour, rapid.IntRange(0, 59).Draw(t, "min"), body)
}

func TestPropertyEmittedPlusPendingEqualsTotals(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOf(rapid.Custom(genLine)).Draw(t, "lines")
		a := newDefault()

		sum := 0
		for _, b := range feed(a, lines...) {
			sum += b.ErrorCount
		}
		if pending, ok := a.Pending(); ok {
			sum += pending.ErrorCount
		}

		totals := a.Totals()
		if sum != totals.Errors {
			t.Fatalf("emitted+pending %d != total %d", sum, totals.Errors)
		}
		if totals.Entries != totals.Errors {
			t.Fatalf("entries %d != errors %d", totals.Entries, totals.Errors)
		}
	})
}

func TestPropertyUntimestampedLinesHaveNoEffect(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOf(rapid.Custom(genLine)).Draw(t, "lines")

		var stamped []string
		for _, l := range lines {
			if _, ok := parser.MustExtractor("").Extract(l); ok {
				stamped = append(stamped, l)
			}
		}

		withNoise, clean := newDefault(), newDefault()
		gotNoise := feed(withNoise, lines...)
		gotClean := feed(clean, stamped...)

		if fmt.Sprint(gotNoise) != fmt.Sprint(gotClean) {
			t.Fatalf("emissions differ: %v vs %v", gotNoise, gotClean)
		}
		if withNoise.Totals() != clean.Totals() {
			t.Fatalf("totals differ: %v vs %v", withNoise.Totals(), clean.Totals())
		}
	})
}

func TestPropertyNoEmissionWhileKeyUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(t, "n")
		a := newDefault()

		prev := 0
		for i := 0; i < n; i++ {
			body := rapid.SampledFrom([]string{"Error: x", "Info: y"}).Draw(t, "body")
			if _, ok := a.Advance(fmt.Sprintf("2024-01-01 10:%02d:00-00 %s", i%60, body)); ok {
				t.Fatalf("unexpected emission at line %d", i)
			}
			pending, _ := a.Pending()
			if pending.ErrorCount < prev {
				t.Fatalf("count decreased from %d to %d", prev, pending.ErrorCount)
			}
			prev = pending.ErrorCount
		}
	})
}
