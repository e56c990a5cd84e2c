// Package normalize coerces raw sub-analysis output into the fixed report
// schema. Every function is total: any input, including nil and values of
// the wrong type, maps to a well-formed record.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/papercheck/internal/model"
)

// Defaults for non-record inputs and missing fields
const (
	UnknownReference = "Unknown"
	UnknownCitation  = "Unknown citation"
	UnknownClaim     = "Unknown claim"
)

// Citation normalizes a single citation.
// Accepted records: model.Citation, model.CitationEntry, pointers to either,
// map[string]any and map[string]string. Anything else is not a record.
func Citation(c any) model.CitationEntry {
	switch v := c.(type) {
	case model.Citation:
		return model.CitationEntry{
			Reference: orDefault(firstNonEmpty(v.Raw, v.CleanedTitle), UnknownCitation),
			Valid:     v.Valid,
		}
	case *model.Citation:
		if v == nil {
			break
		}
		return Citation(*v)
	case model.CitationEntry:
		return model.CitationEntry{Reference: orDefault(v.Reference, UnknownCitation), Valid: v.Valid}
	case *model.CitationEntry:
		if v == nil {
			break
		}
		return Citation(*v)
	case map[string]any:
		return model.CitationEntry{
			Reference: orDefault(firstNonEmpty(str(v["raw"]), str(v["cleaned_title"]), str(v["reference"])), UnknownCitation),
			Valid:     boolean(v["valid"]),
		}
	case map[string]string:
		return model.CitationEntry{
			Reference: orDefault(firstNonEmpty(v["raw"], v["cleaned_title"], v["reference"]), UnknownCitation),
			Valid:     boolean(v["valid"]),
		}
	}
	return model.CitationEntry{Reference: UnknownReference, Valid: false}
}

// Citations normalizes a citation list, dropping entries that are not records.
// A nil or non-list input yields an empty slice.
func Citations(list any) []model.CitationEntry {
	out := []model.CitationEntry{}
	for _, item := range items(list) {
		if !isCitationRecord(item) {
			continue
		}
		out = append(out, Citation(item))
	}
	return out
}

// FactCheck normalizes a single fact-check result.
// Accepted records: model.FactCheckResult, model.FactCheckEntry, pointers to
// either, map[string]any and map[string]string.
func FactCheck(f any) model.FactCheckEntry {
	switch v := f.(type) {
	case model.FactCheckResult:
		return model.FactCheckEntry{
			Claim:  orDefault(v.Claim.Text, UnknownClaim),
			Status: StatusLabel(string(v.Verdict)),
		}
	case *model.FactCheckResult:
		if v == nil {
			break
		}
		return FactCheck(*v)
	case model.FactCheckEntry:
		return model.FactCheckEntry{
			Claim:  orDefault(v.Claim, UnknownClaim),
			Status: StatusLabel(v.Status),
		}
	case *model.FactCheckEntry:
		if v == nil {
			break
		}
		return FactCheck(*v)
	case map[string]any:
		return model.FactCheckEntry{
			Claim:  orDefault(claimText(v["claim"]), UnknownClaim),
			Status: StatusLabel(firstNonEmpty(str(v["status"]), str(v["verdict"]))),
		}
	case map[string]string:
		return model.FactCheckEntry{
			Claim:  orDefault(strings.TrimSpace(v["claim"]), UnknownClaim),
			Status: StatusLabel(firstNonEmpty(v["status"], v["verdict"])),
		}
	}
	return model.FactCheckEntry{Claim: UnknownClaim, Status: model.StatusUnverified}
}

// FactChecks normalizes a fact-check list, dropping entries that are not records
func FactChecks(list any) []model.FactCheckEntry {
	out := []model.FactCheckEntry{}
	for _, item := range items(list) {
		if !isFactCheckRecord(item) {
			continue
		}
		out = append(out, FactCheck(item))
	}
	return out
}

// StatusLabel maps a raw verdict to its display label. Matching is exact:
// already-labelled values map to themselves and anything else, including
// other casings, is Unverified.
func StatusLabel(status string) string {
	switch strings.TrimSpace(status) {
	case string(model.VerdictVerified), model.StatusVerified:
		return model.StatusVerified
	case string(model.VerdictContradicted), model.StatusContradicted:
		return model.StatusContradicted
	default:
		return model.StatusUnverified
	}
}

// Plagiarism normalizes a plagiarism result. Besides records it accepts a
// bare number or numeric string; a bare value above 1 is read as a percentage.
// The score always ends up finite and within [0, 1].
func Plagiarism(p any) model.PlagiarismEntry {
	switch v := p.(type) {
	case model.PlagiarismResult:
		return plagiarismEntry(v.Score, v.MatchingSources)
	case *model.PlagiarismResult:
		if v == nil {
			break
		}
		return Plagiarism(*v)
	case model.PlagiarismEntry:
		return plagiarismEntry(v.Score, v.MatchingSources)
	case *model.PlagiarismEntry:
		if v == nil {
			break
		}
		return Plagiarism(*v)
	case map[string]any:
		score, ok := v["plagiarism_score"]
		if !ok {
			score = v["score"]
		}
		f, _ := number(score)
		return plagiarismEntry(f, v["matching_sources"])
	case map[string]string:
		f, _ := number(firstNonEmpty(v["plagiarism_score"], v["score"]))
		return plagiarismEntry(f, nil)
	default:
		if f, ok := number(p); ok {
			if f > 1 {
				f /= 100
			}
			return plagiarismEntry(f, nil)
		}
	}
	return plagiarismEntry(0, nil)
}

// Summary maps a blank summary to the documented placeholder
func Summary(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.SummaryUnavailable
	}
	return s
}

func plagiarismEntry(score float64, sources any) model.PlagiarismEntry {
	return model.PlagiarismEntry{
		Score:           clamp(score),
		MatchingSources: stringList(sources),
	}
}

func clamp(f float64) float64 {
	switch {
	case math.IsNaN(f), math.IsInf(f, 0), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func isCitationRecord(v any) bool {
	switch r := v.(type) {
	case model.Citation, model.CitationEntry, map[string]any, map[string]string:
		return true
	case *model.Citation:
		return r != nil
	case *model.CitationEntry:
		return r != nil
	}
	return false
}

func isFactCheckRecord(v any) bool {
	switch r := v.(type) {
	case model.FactCheckResult, model.FactCheckEntry, map[string]any, map[string]string:
		return true
	case *model.FactCheckResult:
		return r != nil
	case *model.FactCheckEntry:
		return r != nil
	}
	return false
}

// items flattens the list shapes produced upstream
func items(list any) []any {
	switch v := list.(type) {
	case []any:
		return v
	case []model.Citation:
		return anys(v)
	case []*model.Citation:
		return anys(v)
	case []model.CitationEntry:
		return anys(v)
	case []*model.CitationEntry:
		return anys(v)
	case []model.FactCheckResult:
		return anys(v)
	case []*model.FactCheckResult:
		return anys(v)
	case []model.FactCheckEntry:
		return anys(v)
	case []*model.FactCheckEntry:
		return anys(v)
	case []map[string]any:
		return anys(v)
	case []map[string]string:
		return anys(v)
	}
	return nil
}

func anys[T any](s []T) []any {
	out := make([]any, len(s))
	for i := range s {
		out[i] = s[i]
	}
	return out
}

func claimText(v any) string {
	switch c := v.(type) {
	case model.Claim:
		return strings.TrimSpace(c.Text)
	case map[string]any:
		return str(c["text"])
	}
	return str(v)
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case model.Verdict:
		return strings.TrimSpace(string(s))
	case fmt.Stringer:
		return strings.TrimSpace(s.String())
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

func boolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	}
	if f, ok := number(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%")), 64)
		return f, err == nil
	}
	return 0, false
}

func stringList(v any) []string {
	out := []string{}
	switch s := v.(type) {
	case []string:
		for _, item := range s {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	case []any:
		for _, item := range s {
			switch x := item.(type) {
			case nil:
			case string:
				if x = strings.TrimSpace(x); x != "" {
					out = append(out, x)
				}
			case map[string]any:
				if name := firstNonEmpty(str(x["name"]), str(x["title"]), str(x["url"]), str(x["source"])); name != "" {
					out = append(out, name)
				}
			default:
				out = append(out, fmt.Sprint(x))
			}
		}
	case string:
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
