package main

import (
	"io"
	"strings"
	"testing"
)

const baselineOut = `goos: linux
BenchmarkValidateAccess-8   1000000   1000 ns/op   512 B/op   10 allocs/op
BenchmarkValidateAccess-8   1000000   1200 ns/op   512 B/op   10 allocs/op
BenchmarkRefresh-8            50000  20000 ns/op
BenchmarkRefreshMetricsEnabled-8     100000000     2 ns/op
PASS
`

func TestParseBenchmarksKeepsTrackedOnly(t *testing.T) {
	got, err := parseBenchmarks(strings.NewReader(baselineOut), defaultTracked)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(got["BenchmarkValidateAccess"]["ns/op"]); n != 2 {
		t.Fatalf("expected 2 validate samples, got %d", n)
	}
	if _, ok := got["BenchmarkRefreshMetricsEnabled"]; ok {
		t.Fatal("untracked benchmark parsed")
	}
	if m := median(got["BenchmarkValidateAccess"]["ns/op"]); m != 1100 {
		t.Fatalf("expected median 1100, got %v", m)
	}
}

func TestCompareFlagsRegression(t *testing.T) {
	tracked := map[string][]string{"BenchmarkRefresh": {"ns/op"}}
	base := sampleSet{"BenchmarkRefresh": {"ns/op": {100}}}

	ok := sampleSet{"BenchmarkRefresh": {"ns/op": {120}}}
	if f := compare(io.Discard, tracked, base, ok, 0.30); len(f) != 0 {
		t.Fatalf("expected no failures, got %v", f)
	}

	slow := sampleSet{"BenchmarkRefresh": {"ns/op": {140}}}
	if f := compare(io.Discard, tracked, base, slow, 0.30); len(f) != 1 {
		t.Fatalf("expected one failure, got %v", f)
	}

	if f := compare(io.Discard, tracked, base, sampleSet{}, 0.30); len(f) != 1 || !strings.Contains(f[0], "missing") {
		t.Fatalf("expected missing-sample failure, got %v", f)
	}
}

func TestNormalizeBenchmarkName(t *testing.T) {
	if got := normalizeBenchmarkName("BenchmarkRefresh-16"); got != "BenchmarkRefresh" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeBenchmarkName("BenchmarkRefresh"); got != "BenchmarkRefresh" {
		t.Fatalf("got %q", got)
	}
}
