package alignment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

// allowedScriptImports is the whitelist for aggregation scripts. Scripts
// transform data; they get no filesystem, network, or process access.
var allowedScriptImports = map[string]bool{
	"encoding/json": true,
	"fmt":           true,
	"math":          true,
	"sort":          true,
	"strconv":       true,
	"strings":       true,
	"time":          true,
}

var importPattern = regexp.MustCompile(`(?m)^\s*(?:import\s+)?"([^"]+)"`)

// scriptTimeout bounds one script evaluation.
const scriptTimeout = 10 * time.Second

// scriptResult is the JSON shape scripts must return.
type scriptResult struct {
	Vector     types.AlignmentVector `json:"vector"`
	Confidence float64               `json:"confidence"`
}

// ScriptedPolicy evaluates a user-supplied Go script for aggregation. The
// script must define
//
//	func Aggregate(activitiesJSON string) (string, error)
//
// receiving the activity list as JSON and returning a JSON object with
// "vector" and "confidence" fields. Script failures fall back to the
// keyword policy so a broken script degrades instead of halting the run.
type ScriptedPolicy struct {
	source   string
	fallback AggregationPolicy
}

// NewScriptedPolicy loads and validates a script file.
func NewScriptedPolicy(path string) (*ScriptedPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aggregation script: %w", err)
	}
	source := string(data)
	if err := checkScriptImports(source); err != nil {
		return nil, err
	}
	return &ScriptedPolicy{source: source, fallback: NewKeywordPolicy()}, nil
}

func (p *ScriptedPolicy) Name() string { return "scripted" }

func (p *ScriptedPolicy) Aggregate(ctx context.Context, activities []types.PoliticalActivity) (types.AlignmentVector, float64, error) {
	vector, confidence, err := p.run(ctx, activities)
	if err != nil {
		logging.AlignmentWarn("aggregation script failed, using keyword policy: %v", err)
		return p.fallback.Aggregate(ctx, activities)
	}
	return vector, confidence, nil
}

func (p *ScriptedPolicy) run(ctx context.Context, activities []types.PoliticalActivity) (types.AlignmentVector, float64, error) {
	var zero types.AlignmentVector

	input, err := json.Marshal(activities)
	if err != nil {
		return zero, 0, fmt.Errorf("marshal activities: %w", err)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return zero, 0, fmt.Errorf("load script stdlib: %w", err)
	}

	if _, err := i.Eval(wrapScript(p.source)); err != nil {
		return zero, 0, fmt.Errorf("compile script: %w", err)
	}

	v, err := i.Eval("main.Aggregate")
	if err != nil {
		return zero, 0, fmt.Errorf("script has no Aggregate function: %w", err)
	}
	fn, ok := v.Interface().(func(string) (string, error))
	if !ok {
		return zero, 0, fmt.Errorf("Aggregate has wrong signature (want func(string) (string, error))")
	}

	type outcome struct {
		out string
		err error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		out, err := fn(string(input))
		resultCh <- outcome{out, err}
	}()

	select {
	case <-ctx.Done():
		return zero, 0, ctx.Err()
	case <-time.After(scriptTimeout):
		return zero, 0, fmt.Errorf("script timed out after %v", scriptTimeout)
	case r := <-resultCh:
		if r.err != nil {
			return zero, 0, fmt.Errorf("script error: %w", r.err)
		}
		var parsed scriptResult
		if err := json.Unmarshal([]byte(r.out), &parsed); err != nil {
			return zero, 0, fmt.Errorf("script returned invalid JSON: %w", err)
		}
		for _, axis := range types.AxisNames() {
			parsed.Vector.SetAxis(axis, clampAxis(parsed.Vector.Axis(axis)))
		}
		if parsed.Confidence < 0 {
			parsed.Confidence = 0
		}
		if parsed.Confidence > 1 {
			parsed.Confidence = 1
		}
		return parsed.Vector, parsed.Confidence, nil
	}
}

// wrapScript puts bare script source into a main package so yaegi can
// evaluate it. Scripts that already declare a package are left alone.
func wrapScript(source string) string {
	if strings.Contains(source, "package ") {
		return source
	}
	return "package main\n\n" + source
}

func checkScriptImports(source string) error {
	var forbidden []string
	for _, m := range importPattern.FindAllStringSubmatch(source, -1) {
		if !allowedScriptImports[m[1]] {
			forbidden = append(forbidden, m[1])
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("script imports forbidden packages: %v", forbidden)
	}
	return nil
}
