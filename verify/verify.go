// Package verify checks, across module boundaries, that every native member a
// consumer expects has exactly one compatible implementation in a producer.
//
// Both declaration sets must be fully materialized before verification
// starts. Every diagnostic is collected before the report is returned, so a
// single run shows every problem.
package verify

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/nativebridge/decl"
	"github.com/wippyai/nativebridge/descriptor"
	"github.com/wippyai/nativebridge/errors"
)

// Options tunes verification.
type Options struct {
	// AllowExtraActuals suppresses UnexpectedActual diagnostics.
	AllowExtraActuals bool
	// Resolver resolves both sides' types; nil applies built-in rules.
	Resolver *descriptor.Resolver
}

// BindingRecord pairs an expectation with the actual chosen for it, if any.
type BindingRecord struct {
	Key         string            `json:"key"`
	Expectation decl.Declaration  `json:"expectation"`
	Actual      *decl.Declaration `json:"actual,omitempty"`
}

// Diagnostic is one verification finding.
type Diagnostic struct {
	Kind        errors.Kind       `json:"kind"`
	Key         string            `json:"key"`
	Expectation errors.Location   `json:"expectation"`
	Actual      []errors.Location `json:"actual,omitempty"`
	Message     string            `json:"message"`
}

// Error converts the diagnostic to a structured error.
func (d Diagnostic) Error() *errors.Error {
	switch d.Kind {
	case errors.KindMissingActual:
		return errors.MissingActual(d.Key, d.Expectation)
	case errors.KindAmbiguousActual:
		return errors.AmbiguousActual(d.Key, d.Expectation, d.Actual)
	case errors.KindSignatureMismatch:
		var act errors.Location
		if len(d.Actual) > 0 {
			act = d.Actual[0]
		}
		return errors.SignatureMismatch(d.Key, d.Expectation, act, d.Message)
	case errors.KindUnexpectedActual:
		return errors.UnexpectedActual(d.Key, firstLocation(d))
	}
	return errors.New(errors.PhaseVerify, d.Kind).
		At(firstLocation(d)).
		Path(d.Key).
		Detail("%s", d.Message).
		Build()
}

// Report is the complete outcome of a verification run.
type Report struct {
	Records     []BindingRecord `json:"records"`
	Diagnostics []Diagnostic    `json:"diagnostics"`
}

// OK reports whether verification found nothing.
func (r *Report) OK() bool {
	return len(r.Diagnostics) == 0
}

// Count returns the number of diagnostics of kind k.
func (r *Report) Count(k errors.Kind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Errors returns every diagnostic as a structured error, in report order.
func (r *Report) Errors() errors.List {
	var errs errors.List
	for _, d := range r.Diagnostics {
		errs.Add(d.Error())
	}
	return errs
}

// Err returns nil for a clean report and an aggregate of every diagnostic
// otherwise.
func (r *Report) Err() error {
	return r.Errors().Err()
}

// Verify matches expectations against actuals.
func Verify(expect, actual *decl.Set, opts Options) *Report {
	v := &verifier{opts: opts, resolver: opts.Resolver}
	if v.resolver == nil {
		v.resolver = &descriptor.Resolver{}
	}
	return v.run(expect, actual)
}

type verifier struct {
	opts     Options
	resolver *descriptor.Resolver
	report   Report
}

func (v *verifier) diag(kind errors.Kind, key string, exp errors.Location, act []errors.Location, format string, args ...any) {
	v.report.Diagnostics = append(v.report.Diagnostics, Diagnostic{
		Kind:        kind,
		Key:         key,
		Expectation: exp,
		Actual:      act,
		Message:     fmt.Sprintf(format, args...),
	})
}

func (v *verifier) run(expect, actual *decl.Set) *Report {
	var expDecls, actDecls []decl.Declaration
	if expect != nil {
		expDecls = expect.Sorted().Declarations
	}
	if actual != nil {
		actDecls = actual.Sorted().Declarations
	}

	byKey := make(map[string][]int)
	for i := range actDecls {
		k := actDecls[i].Key()
		byKey[k] = append(byKey[k], i)
	}
	claimed := make([]bool, len(actDecls))

	for i := range expDecls {
		exp := &expDecls[i]
		key := exp.Key()
		rec := BindingRecord{Key: key, Expectation: *exp}

		if errs := decl.ValidateExpectation(exp); len(errs) > 0 {
			for _, err := range errs {
				v.diag(errors.KindMalformedDeclaration, key, exp.Location, nil, "%s", err.Detail)
			}
			v.report.Records = append(v.report.Records, rec)
			continue
		}

		candidates := byKey[key]
		for _, c := range candidates {
			claimed[c] = true
		}
		chosen, ok := v.choose(exp, key, actDecls, candidates)
		if ok {
			act := actDecls[chosen]
			rec.Actual = &act
			v.compare(exp, &act, key)
		}
		v.report.Records = append(v.report.Records, rec)
	}

	if !v.opts.AllowExtraActuals {
		for i := range actDecls {
			if !claimed[i] {
				a := &actDecls[i]
				v.diag(errors.KindUnexpectedActual, a.Key(), errors.Location{}, []errors.Location{a.Location},
					"actual %s matches no expectation", a.Name)
			}
		}
	}

	v.sort()
	Logger().Debug("verified declaration sets",
		zap.Int("expectations", len(expDecls)),
		zap.Int("actuals", len(actDecls)),
		zap.Int("diagnostics", len(v.report.Diagnostics)))
	return &v.report
}

// choose picks the actual for an expectation. An actual whose explicit
// override equals the key beats name-derived candidates; two explicit
// overrides stay ambiguous. Remaining candidates are narrowed to those with
// the expectation's argument descriptors, so overloads bind one to one.
func (v *verifier) choose(exp *decl.Declaration, key string, actDecls []decl.Declaration, candidates []int) (int, bool) {
	switch len(candidates) {
	case 0:
		v.diag(errors.KindMissingActual, key, exp.Location, nil,
			"no actual declaration implements %s", key)
		return 0, false
	case 1:
		return candidates[0], true
	}

	var explicit []int
	for _, c := range candidates {
		if actDecls[c].Override != "" {
			explicit = append(explicit, c)
		}
	}
	if len(explicit) == 1 {
		return explicit[0], true
	}
	named := candidates
	if len(explicit) > 1 {
		named = explicit
	}
	switch overloads := v.sameArgs(exp, actDecls, named); len(overloads) {
	case 0:
	case 1:
		return overloads[0], true
	default:
		named = overloads
	}
	locs := make([]errors.Location, len(named))
	names := make([]string, len(named))
	for i, c := range named {
		locs[i] = actDecls[c].Location
		names[i] = fmt.Sprintf("%s (%s)", actDecls[c].Name, actDecls[c].Location)
	}
	v.diag(errors.KindAmbiguousActual, key, exp.Location, locs,
		"%d actuals implement %s: %s", len(named), key, strings.Join(names, ", "))
	return 0, false
}

// sameArgs returns the candidates whose parameters resolve to the same
// argument descriptors as the expectation's. Unresolvable types match
// nothing.
func (v *verifier) sameArgs(exp *decl.Declaration, actDecls []decl.Declaration, candidates []int) []int {
	want, err := v.argDescriptors(exp)
	if err != nil {
		return nil
	}
	var out []int
	for _, c := range candidates {
		if got, err := v.argDescriptors(&actDecls[c]); err == nil && got == want {
			out = append(out, c)
		}
	}
	return out
}

func (v *verifier) argDescriptors(d *decl.Declaration) (string, error) {
	params := make([]descriptor.TypeSignature, len(d.Params))
	for i, t := range d.ParamTypes() {
		sig, err := v.resolver.Resolve(t, false)
		if err != nil {
			return "", err
		}
		params[i] = sig
	}
	return descriptor.ArgDescriptors(params), nil
}

// compare reports every shape difference between an expectation and its
// actual in a single diagnostic.
func (v *verifier) compare(exp, act *decl.Declaration, key string) {
	expParams, expRet, expErrs := v.resolver.ResolveAll(exp.Path(), exp.ParamTypes(), exp.Return)
	actParams, actRet, actErrs := v.resolver.ResolveAll(act.Path(), act.ParamTypes(), act.Return)
	for _, err := range expErrs {
		v.diag(errors.KindUnresolvedType, key, exp.Location, nil, "expectation: %s", unresolvedMessage(err))
	}
	for _, err := range actErrs {
		v.diag(errors.KindUnresolvedType, key, exp.Location, []errors.Location{act.Location}, "actual: %s", unresolvedMessage(err))
	}

	var diffs []string
	if len(exp.Params) != len(act.Params) {
		diffs = append(diffs, fmt.Sprintf("arity %d vs %d", len(exp.Params), len(act.Params)))
	} else if len(expErrs) == 0 && len(actErrs) == 0 {
		for i := range expParams {
			if expParams[i].Descriptor != actParams[i].Descriptor {
				diffs = append(diffs, fmt.Sprintf("parameter %d: %s vs %s", i, expParams[i].Descriptor, actParams[i].Descriptor))
			}
		}
	}
	if len(expErrs) == 0 && len(actErrs) == 0 && expRet.Descriptor != actRet.Descriptor {
		diffs = append(diffs, fmt.Sprintf("return: %s vs %s", expRet.Descriptor, actRet.Descriptor))
	}
	if !exp.Static.Compatible(act.Static) {
		diffs = append(diffs, fmt.Sprintf("staticness: %s vs %s", exp.Static, act.Static))
	}
	if len(diffs) > 0 {
		v.diag(errors.KindSignatureMismatch, key, exp.Location, []errors.Location{act.Location},
			"%s", strings.Join(diffs, "; "))
	}
}

func unresolvedMessage(err *errors.Error) string {
	if err.SourceType != "" {
		return fmt.Sprintf("%s at %s: %s", err.SourceType, strings.Join(err.Path, "."), err.Detail)
	}
	return err.Error()
}

func firstLocation(d Diagnostic) errors.Location {
	if !d.Expectation.IsZero() {
		return d.Expectation
	}
	if len(d.Actual) > 0 {
		return d.Actual[0]
	}
	return errors.Location{}
}

func (v *verifier) sort() {
	diags := v.report.Diagnostics
	sort.SliceStable(diags, func(i, j int) bool {
		li, lj := firstLocation(diags[i]), firstLocation(diags[j])
		if li != lj {
			return li.Less(lj)
		}
		if diags[i].Kind != diags[j].Kind {
			return diags[i].Kind < diags[j].Kind
		}
		if diags[i].Key != diags[j].Key {
			return diags[i].Key < diags[j].Key
		}
		return diags[i].Message < diags[j].Message
	})
	sort.SliceStable(v.report.Records, func(i, j int) bool {
		return v.report.Records[i].Key < v.report.Records[j].Key
	})
}
