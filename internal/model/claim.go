package model

// Claim represents a short, independently checkable sentence extracted from a document
type Claim struct {
	Text     string `json:"text"`               // The claim text itself
	Sentence int    `json:"sentence,omitempty"` // Sentence index in source (0-based)
}

// Verdict is the outcome of fact-checking a single claim
type Verdict string

const (
	VerdictVerified     Verdict = "verified"     // Reviewers rate the claim as accurate
	VerdictContradicted Verdict = "contradicted" // Reviewers rate the claim as false or misleading
	VerdictNoVerdict    Verdict = "no_verdict"   // No review found, or checking not configured
	VerdictAPIError     Verdict = "api_error"    // The lookup for this claim failed
)

// FactCheckResult pairs a claim with its verdict
type FactCheckResult struct {
	Claim   Claim    `json:"claim"`
	Verdict Verdict  `json:"verdict"`
	Note    string   `json:"note,omitempty"`    // Why no verdict was reached, or the lookup error
	Reviews []Review `json:"reviews,omitempty"` // Raw reviews returned by the fact-check service
}

// Review is a single published fact-check matching a claim
type Review struct {
	Publisher string `json:"publisher,omitempty"`
	URL       string `json:"url,omitempty"`
	Rating    string `json:"rating,omitempty"` // Textual rating, e.g. "False", "Mostly true"
}
