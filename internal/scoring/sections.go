package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// Letter identifies one of the five appraisal sections.
type Letter string

const (
	SectionA Letter = "A"
	SectionB Letter = "B"
	SectionC Letter = "C"
	SectionD Letter = "D"
	SectionE Letter = "E"
)

// Letters lists the sections in report order.
var Letters = []Letter{SectionA, SectionB, SectionC, SectionD, SectionE}

// ParseLetter accepts "a", "B" or "sectionC" style identifiers.
func ParseLetter(raw string) (Letter, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(strings.ToLower(trimmed), "section")
	letter := Letter(strings.ToUpper(trimmed))
	if _, ok := sectionSpecs[letter]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, raw)
	}
	return letter, nil
}

// Category is the typed record behind every category sub-document.
type Category struct {
	Count         float64 `json:"count"`
	Amount        float64 `json:"amount"`
	Proof         string  `json:"proof"`
	Marks         float64 `json:"marks"`
	VerifiedMarks float64 `json:"verified_marks"`
}

// SectionTotals carries the aggregated marks of a section.
type SectionTotals struct {
	TotalMarks    float64 `json:"total_marks"`
	VerifiedMarks float64 `json:"verified_marks"`
}

func (t *SectionTotals) totals() *SectionTotals { return t }

// Section is implemented by the five typed section records.
type Section interface {
	Letter() Letter
	categories() []categoryRef
	totals() *SectionTotals
}

type categoryRef struct {
	key  string
	rule Rule
	cat  *Category
}

// Teaching is section A: teaching load and outcomes.
type Teaching struct {
	LecturesDelivered  Category `json:"lectures_delivered"`
	ResultAnalysis     Category `json:"result_analysis"`
	CourseFiles        Category `json:"course_files"`
	InnovativePedagogy Category `json:"innovative_pedagogy"`
	ProjectsGuided     Category `json:"projects_guided"`
	MoocContent        Category `json:"mooc_content"`
	SectionTotals
}

func (s *Teaching) Letter() Letter { return SectionA }

func (s *Teaching) categories() []categoryRef {
	return []categoryRef{
		{"lectures_delivered", perUnit(5).capped(100), &s.LecturesDelivered},
		{"result_analysis", perUnit(20).capped(60), &s.ResultAnalysis},
		{"course_files", perUnit(10).capped(30), &s.CourseFiles},
		{"innovative_pedagogy", perUnit(10).capped(40), &s.InnovativePedagogy},
		{"projects_guided", perUnit(20).capped(60), &s.ProjectsGuided},
		{"mooc_content", perUnit(30).capped(60), &s.MoocContent},
	}
}

// Research is section B: publications, patents, grants and guidance.
type Research struct {
	JournalNationalIndexed      Category `json:"journal_national_indexed"`
	JournalInstitutionalIndexed Category `json:"journal_institutional_indexed"`
	ConferencePapers            Category `json:"conference_papers"`
	BookChapters                Category `json:"book_chapters"`
	BooksPublished              Category `json:"books_published"`
	PatentsGranted              Category `json:"patents_granted"`
	PatentsPublished            Category `json:"patents_published"`
	Citations                   Category `json:"citations"`
	ResearchGrants              Category `json:"research_grants"`
	Consultancy                 Category `json:"consultancy"`
	PhdGuided                   Category `json:"phd_guided"`
	SectionTotals
}

func (s *Research) Letter() Letter { return SectionB }

func (s *Research) categories() []categoryRef {
	return []categoryRef{
		{"journal_national_indexed", perUnit(100), &s.JournalNationalIndexed},
		{"journal_institutional_indexed", perUnit(50), &s.JournalInstitutionalIndexed},
		{"conference_papers", perUnit(30), &s.ConferencePapers},
		{"book_chapters", perUnit(20), &s.BookChapters},
		{"books_published", perUnit(50), &s.BooksPublished},
		{"patents_granted", perUnit(100), &s.PatentsGranted},
		{"patents_published", perUnit(30), &s.PatentsPublished},
		{"citations", perCitationTier(5).capped(50), &s.Citations},
		{"research_grants", perThreshold(200000, 10), &s.ResearchGrants},
		{"consultancy", perThreshold(100000, 10), &s.Consultancy},
		{"phd_guided", perUnit(50), &s.PhdGuided},
	}
}

// Qualification is section C: qualification upgrades and training.
type Qualification struct {
	FDPAttended       Category `json:"fdp_attended"`
	FDPOrganized      Category `json:"fdp_organized"`
	Certifications    Category `json:"certifications"`
	IndustryTraining  Category `json:"industry_training"`
	WorkshopsAttended Category `json:"workshops_attended"`
	ResourcePerson    Category `json:"resource_person"`
	SectionTotals
}

func (s *Qualification) Letter() Letter { return SectionC }

func (s *Qualification) categories() []categoryRef {
	return []categoryRef{
		{"fdp_attended", perUnit(10), &s.FDPAttended},
		{"fdp_organized", perUnit(20), &s.FDPOrganized},
		{"certifications", perUnit(10), &s.Certifications},
		{"industry_training", perUnit(20), &s.IndustryTraining},
		{"workshops_attended", perUnit(5), &s.WorkshopsAttended},
		{"resource_person", perUnit(10), &s.ResourcePerson},
	}
}

// Portfolio is section D: administrative and institutional roles.
type Portfolio struct {
	InstitutePortfolio   Category `json:"institute_portfolio"`
	DepartmentPortfolio  Category `json:"department_portfolio"`
	CommitteeMemberships Category `json:"committee_memberships"`
	EventCoordination    Category `json:"event_coordination"`
	IndustryInteraction  Category `json:"industry_interaction"`
	SectionTotals
}

func (s *Portfolio) Letter() Letter { return SectionD }

func (s *Portfolio) categories() []categoryRef {
	return []categoryRef{
		{"institute_portfolio", perUnit(20), &s.InstitutePortfolio},
		{"department_portfolio", perUnit(10), &s.DepartmentPortfolio},
		{"committee_memberships", perUnit(5), &s.CommitteeMemberships},
		{"event_coordination", perUnit(10), &s.EventCoordination},
		{"industry_interaction", perUnit(20), &s.IndustryInteraction},
	}
}

// Supplementary is section E: additional contributions.
type Supplementary struct {
	Awards                  Category `json:"awards"`
	ProfessionalMemberships Category `json:"professional_memberships"`
	SocialContributions     Category `json:"social_contributions"`
	AdditionalContributions Category `json:"additional_contributions"`
	SectionTotals
}

func (s *Supplementary) Letter() Letter { return SectionE }

func (s *Supplementary) categories() []categoryRef {
	return []categoryRef{
		{"awards", perUnit(20), &s.Awards},
		{"professional_memberships", perUnit(5), &s.ProfessionalMemberships},
		{"social_contributions", perUnit(10), &s.SocialContributions},
		{"additional_contributions", perUnit(10), &s.AdditionalContributions},
	}
}

type sectionSpec struct {
	title    string
	maxMarks float64
	build    func() Section
}

var sectionSpecs = map[Letter]sectionSpec{
	SectionA: {"Teaching", 300, func() Section { return &Teaching{} }},
	SectionB: {"Research", 370, func() Section { return &Research{} }},
	SectionC: {"Qualification and Training", 100, func() Section { return &Qualification{} }},
	SectionD: {"Portfolio", 180, func() Section { return &Portfolio{} }},
	SectionE: {"Supplementary", 50, func() Section { return &Supplementary{} }},
}

// New returns an empty typed record for the section.
func New(letter Letter) (Section, error) {
	spec, ok := sectionSpecs[letter]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, letter)
	}
	return spec.build(), nil
}

// Title returns the human readable section name.
func Title(letter Letter) string {
	return sectionSpecs[letter].title
}

// MaxMarks returns the section ceiling applied to both claimed and verified totals.
func MaxMarks(letter Letter) float64 {
	return sectionSpecs[letter].maxMarks
}

// MaxVerifiedTotal is the highest grand verified total obtainable.
func MaxVerifiedTotal() float64 {
	var total float64
	for _, spec := range sectionSpecs {
		total += spec.maxMarks
	}
	return total
}

// CategoryKeys lists the category keys of a section in declaration order.
func CategoryKeys(letter Letter) []string {
	section, err := New(letter)
	if err != nil {
		return nil
	}
	refs := section.categories()
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, ref.key)
	}
	return keys
}

// CategoryMarks is a flattened view of a category used for reporting.
type CategoryMarks struct {
	Key           string
	Marks         float64
	VerifiedMarks float64
}

// Breakdown flattens a section into per-category marks in declaration order.
func Breakdown(section Section) []CategoryMarks {
	refs := section.categories()
	out := make([]CategoryMarks, 0, len(refs))
	for _, ref := range refs {
		out = append(out, CategoryMarks{Key: ref.key, Marks: ref.cat.Marks, VerifiedMarks: ref.cat.VerifiedMarks})
	}
	return out
}

// Totals returns the section totals.
func Totals(section Section) SectionTotals {
	return *section.totals()
}

// Calculate recomputes every category's marks and the section totals.
// Verified marks are summed as entered and never derived from marks.
func Calculate(section Section) SectionTotals {
	var claimed, verified float64
	for _, ref := range section.categories() {
		ref.cat.Marks = ref.rule.Apply(ref.cat.Count, ref.cat.Amount)
		ref.cat.VerifiedMarks = round2(sanitize(ref.cat.VerifiedMarks))
		claimed += ref.cat.Marks
		verified += ref.cat.VerifiedMarks
	}

	ceiling := MaxMarks(section.Letter())
	totals := section.totals()
	totals.TotalMarks = round2(clampMax(claimed, ceiling))
	totals.VerifiedMarks = round2(clampMax(verified, ceiling))
	return *totals
}

func clampMax(v, ceiling float64) float64 {
	if ceiling > 0 && v > ceiling {
		return ceiling
	}
	return v
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
