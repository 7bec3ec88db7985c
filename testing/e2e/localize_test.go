package e2e

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/faultloc/localize/domain"
	"github.com/example/faultloc/localize/modelfile"
	"github.com/example/faultloc/localize/runner"
)

// TestThreeParameterScenario runs the three-parameter scenario: [1,1,1]
// fails, [0,0,0] and [0,1,0] pass, and only p0=1 with p2=1 induces the
// failure. Eight values per parameter leave inputs containing the fault
// that neither generation nor identification ran, so verification has
// something fresh to check.
func TestThreeParameterScenario(t *testing.T) {
	ctx := context.Background()
	env := NewTestEnv(t)
	defer env.Stop()

	model := domain.UniformModel("three-params", 3, 8)
	fault := combo(1, domain.Unset, 1)
	executor := runner.NewFakeExecutor().WithFaults(fault)
	suite := []domain.Combination{combo(0, 0, 0), combo(0, 1, 0), combo(1, 1, 1)}

	m, report := env.Localize(ctx, model, suite, nil, testConfig(), executor)

	if diff := cmp.Diff([]string{fault.Key()}, confirmedKeys(report)); diff != "" {
		t.Fatalf("confirmed mismatch (-want +got):\n%s", diff)
	}
	if kind := report.Confirmed[fault.Key()].Kind; kind != domain.KindFailureInducing {
		t.Errorf("expected kind %s, got %s", domain.KindFailureInducing, kind)
	}
	if m.Phase() != domain.PhaseComplete {
		t.Errorf("expected phase COMPLETE, got %s", m.Phase())
	}

	// No input is executed twice.
	for _, input := range executor.Executed {
		if n := executor.Count(input); n != 1 {
			t.Errorf("input %s executed %d times", input, n)
		}
	}

	// The run record and its combinations are persisted.
	run := env.GetRun(ctx, m.RunID())
	if run.Phase != domain.PhaseComplete {
		t.Errorf("expected stored phase COMPLETE, got %s", run.Phase)
	}
	if run.Executions != report.Executions {
		t.Errorf("expected %d stored executions, got %d", report.Executions, run.Executions)
	}
	recs := env.Combinations(ctx, m.RunID())
	if len(recs) != 1 || recs[0].Key != fault.Key() || !recs[0].Confirmed {
		t.Errorf("unexpected stored combinations: %+v", recs)
	}

	// Every executed input has a cached result attributed to this run.
	results := env.Results(ctx, m.RunID())
	if len(results) != report.Executions {
		t.Errorf("expected %d cached results, got %d", report.Executions, len(results))
	}
	for _, rec := range results {
		input, err := domain.ParseCombination(rec.InputKey)
		if err != nil {
			t.Fatalf("bad stored key %q: %v", rec.InputKey, err)
		}
		if want := input.Contains(fault); rec.Result.IsFailing() != want {
			t.Errorf("input %s stored failing=%v, want %v", input, rec.Result.IsFailing(), want)
		}
	}
}

// TestResumeFromCache repeats a finished localization against the same
// database: nothing is executed again and the outcome is identical.
func TestResumeFromCache(t *testing.T) {
	ctx := context.Background()
	env := NewTestEnv(t)
	defer env.Stop()

	model := domain.UniformModel("resume", 5, 3)
	fault := combo(domain.Unset, 1, domain.Unset, 0, domain.Unset)
	suite := allInputs(model)

	first := runner.NewFakeExecutor().WithFaults(fault)
	_, report1 := env.Localize(ctx, model, suite, nil, testConfig(), first)
	if first.Executions() == 0 {
		t.Fatal("first run executed nothing")
	}

	env.Reopen()

	second := runner.NewFakeExecutor().WithFaults(fault)
	_, report2 := env.Localize(ctx, model, suite, nil, testConfig(), second)

	if second.Executions() != 0 {
		t.Errorf("expected no executions on resume, got %d", second.Executions())
	}
	if report2.CacheHits == 0 {
		t.Error("expected cache hits on resume")
	}
	if diff := cmp.Diff(confirmedKeys(report1), confirmedKeys(report2)); diff != "" {
		t.Errorf("resumed run differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{fault.Key()}, confirmedKeys(report2)); diff != "" {
		t.Errorf("confirmed mismatch (-want +got):\n%s", diff)
	}

	if runs := env.ListRuns(ctx); len(runs) != 2 {
		t.Errorf("expected 2 recorded runs, got %d", len(runs))
	}
}

// TestExceptionClassPersisted checks that the exception type found by
// classification is stored with the confirmed combination.
func TestExceptionClassPersisted(t *testing.T) {
	ctx := context.Background()
	env := NewTestEnv(t)
	defer env.Stop()

	model := domain.UniformModel("exceptions", 3, 8)
	exception := combo(domain.Unset, 1, 1)
	executor := runner.NewFakeExecutor().WithException(exception, "NullPointer")
	suite := []domain.Combination{combo(0, 0, 0), combo(1, 1, 1)}

	m, report := env.Localize(ctx, model, suite, nil, testConfig(), executor)

	ic, ok := report.Confirmed[exception.Key()]
	if !ok {
		t.Fatalf("expected %s confirmed, got %v", exception.Key(), confirmedKeys(report))
	}
	if ic.Kind != domain.KindExceptionInducing {
		t.Errorf("expected kind %s, got %s", domain.KindExceptionInducing, ic.Kind)
	}

	recs := env.Combinations(ctx, m.RunID())
	var found bool
	for _, rec := range recs {
		if rec.Key != exception.Key() {
			continue
		}
		found = true
		if rec.Exception == nil {
			t.Fatal("stored combination has no exception class")
		}
		if rec.Exception.Type != "NullPointer" {
			t.Errorf("expected exception type NullPointer, got %s", rec.Exception.Type)
		}
	}
	if !found {
		t.Errorf("combination %s not stored: %+v", exception.Key(), recs)
	}
}

const matrixModel = `
name: matrix
parameters:
  - name: browser
    values: [chrome, firefox, safari]
  - name: os
    values: [linux, mac]
  - name: locale
    values: [en, de]
  - name: arch
    values: [amd64, arm64, riscv64, s390x]
  - name: region
    values: [us, eu, ap, sa]
constraints:
  - {browser: safari, os: linux}
suite:
  - {browser: chrome, os: linux, locale: en, arch: amd64, region: us}
  - {browser: chrome, os: mac, locale: de, arch: arm64, region: eu}
  - {browser: safari, os: linux, locale: de, arch: amd64, region: eu}
  - {browser: safari, os: mac, locale: en, arch: riscv64, region: ap}
  - {browser: firefox, os: linux, locale: en, arch: s390x, region: sa}
  - {browser: firefox, os: mac, locale: de, arch: amd64, region: us}
  - {browser: chrome, os: linux, locale: de, arch: arm64, region: ap}
  - {browser: firefox, os: linux, locale: de, arch: riscv64, region: eu}
config:
  max_iterations: 3
  workers: 2
  random_seed: 3
`

// TestModelFileWithConstraints localizes a model read from YAML. Inputs
// matching the forbidden tuple are never executed.
func TestModelFileWithConstraints(t *testing.T) {
	ctx := context.Background()
	env := NewTestEnv(t)
	defer env.Stop()

	file, err := modelfile.Parse([]byte(matrixModel))
	if err != nil {
		t.Fatalf("failed to parse model: %v", err)
	}
	model, err := file.Model()
	if err != nil {
		t.Fatalf("invalid model: %v", err)
	}
	forbidden, err := file.ForbiddenTuples(model)
	if err != nil {
		t.Fatalf("bad constraints: %v", err)
	}
	suite, err := file.SuiteInputs(model)
	if err != nil {
		t.Fatalf("bad suite: %v", err)
	}
	config := file.Apply(domain.DefaultConfig())

	// firefox with locale de fails
	fault, err := modelfile.Resolve(model, map[string]string{"browser": "firefox", "locale": "de"})
	if err != nil {
		t.Fatalf("failed to resolve fault: %v", err)
	}
	executor := runner.NewFakeExecutor().WithFaults(fault)

	_, report := env.Localize(ctx, model, suite, forbidden, config, executor)

	if diff := cmp.Diff([]string{fault.Key()}, confirmedKeys(report)); diff != "" {
		t.Fatalf("confirmed mismatch (-want +got):\n%s", diff)
	}
	for _, input := range executor.Executed {
		for _, f := range forbidden {
			if input.Contains(f) {
				t.Errorf("executed forbidden input %s", model.Describe(input))
			}
		}
	}
}

// TestShellCommand drives a real shell command through the command
// executor.
func TestShellCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell available")
	}
	ctx := context.Background()
	env := NewTestEnv(t)
	defer env.Stop()

	model := domain.UniformModel("shell", 3, 6)
	executor := runner.NewCommandExecutor(model, runner.ExecConfig{
		Command:           `[ "$FAULTLOC_P0" = 1 ] && [ "$FAULTLOC_P2" = 1 ] && exit 42; exit 0`,
		Timeout:           10 * time.Second,
		ExceptionExitCode: 42,
	})
	suite := []domain.Combination{combo(0, 0, 0), combo(1, 1, 1)}

	_, report := env.Localize(ctx, model, suite, nil, testConfig(), executor)

	want := combo(1, domain.Unset, 1)
	ic, ok := report.Confirmed[want.Key()]
	if !ok || len(report.Confirmed) != 1 {
		t.Fatalf("expected confirmed [%s], got %v", want.Key(), confirmedKeys(report))
	}
	if ic.Kind != domain.KindExceptionInducing {
		t.Errorf("expected kind %s, got %s", domain.KindExceptionInducing, ic.Kind)
	}
	if class := report.ExceptionClasses[want.Key()]; class.Type != "exit-42" {
		t.Errorf("expected exception type exit-42, got %q", class.Type)
	}
}

// TestCancellation stops a slow run and checks that the partial results
// stay cached.
func TestCancellation(t *testing.T) {
	env := NewTestEnv(t)
	defer env.Stop()

	model := domain.UniformModel("slow", 3, 2)
	executor := runner.NewFakeExecutor().WithFaults(combo(1, domain.Unset, 1)).WithDelay(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	m, err := runner.NewDefault(ctx, model, allInputs(model), nil, testConfig(),
		runner.WithRecorder(runner.NewStoreRecorder(env.Storage)))
	if err != nil {
		t.Fatalf("failed to assemble localization: %v", err)
	}
	_, err = m.Run(ctx, executor, runner.NewStoreCache(env.Storage, model.Name, m.RunID()))
	if err == nil {
		t.Fatal("expected run to stop with an error")
	}
	t.Logf("run stopped: %v", err)
	if executor.Executions() >= len(allInputs(model)) {
		t.Errorf("expected the run to stop early, executed %d inputs", executor.Executions())
	}

	// The result being stored when the deadline hit may be lost.
	results := env.Results(context.Background(), m.RunID())
	if len(results) > executor.Executions() {
		t.Errorf("expected at most %d cached results, got %d", executor.Executions(), len(results))
	}
}
