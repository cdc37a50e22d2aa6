package filter

import (
	"slices"
	"strconv"
	"strings"

	"go-bosszp-automation/internal/models"
)

// Salary descriptions containing these are day or hour rates, never a monthly band.
var salaryIgnoreUnits = []string{"天", "时"}

// MatchDegree accepts postings with no degree requirement, or whose
// requirement is one the desired degree satisfies.
func MatchDegree(candidate, desired string, table map[string][]string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return true
	}
	return slices.Contains(table[desired], candidate)
}

// MatchSalary checks that the user's minimum ask lies inside the posting's
// band. Descriptions that are not "A-BK" pass.
func MatchSalary(candidate, desired string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return true
	}
	for _, unit := range salaryIgnoreUnits {
		if strings.Contains(candidate, unit) {
			return false
		}
	}

	low, high, ok := parseRange(candidate)
	if !ok {
		return true
	}

	want, ok := allDigits(strings.SplitN(desired, "-", 2)[0])
	if !ok {
		return true
	}
	return low <= want && want <= high
}

// MatchExperience checks that the desired years fall in the posting's "A-B"
// range. Anything else, e.g. "经验不限", fails.
func MatchExperience(candidate, desired string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return true
	}

	low, high, ok := parseRange(candidate)
	if !ok {
		return false
	}

	want, ok := leadingDigits(strings.TrimSpace(desired))
	if !ok {
		want = 0
	}
	return low <= want && want <= high
}

// parseRange reads "A-B..." where A is every digit of the left part and B is
// the digit run the right part starts with ("20-30K·14薪" -> 20, 30).
func parseRange(s string) (low, high int, ok bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	low, ok = allDigits(parts[0])
	if !ok {
		return 0, 0, false
	}
	high, ok = leadingDigits(strings.TrimSpace(parts[1]))
	if !ok {
		return 0, 0, false
	}
	return low, high, true
}

func allDigits(s string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil
}

func leadingDigits(s string) (int, bool) {
	end := strings.IndexFunc(s, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if end == -1 {
		end = len(s)
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// Matcher combines the four predicates for one user.
type Matcher struct {
	Criteria   models.UserCriteria
	Degrees    map[string][]string
	Exclusions []string
}

func NewMatcher(criteria models.UserCriteria, degrees map[string][]string, exclusions []string) Matcher {
	return Matcher{Criteria: criteria, Degrees: degrees, Exclusions: exclusions}
}

// Match reports whether the record satisfies every criterion.
func (m Matcher) Match(r models.Record) bool {
	_, title, ok := r.Identify()
	if !ok {
		return false
	}
	req := r.Requirements()

	return MatchDegree(req.Degree, m.Criteria.Degree, m.Degrees) &&
		MatchSalary(req.Salary, m.Criteria.Salary) &&
		MatchExperience(req.Experience, m.Criteria.Experience) &&
		KeepTitle(title, m.Exclusions)
}
