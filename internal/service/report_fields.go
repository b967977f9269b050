package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/patil-rushikesh/FDW-backend/internal/interaction"
	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/scoring"
	"github.com/patil-rushikesh/FDW-backend/pkg/export"
	appErrors "github.com/patil-rushikesh/FDW-backend/pkg/errors"
)

// TemplateAppraisalReport is the faculty appraisal report layout.
const TemplateAppraisalReport = "appraisal_report"

const missingField = "-"

type templateField struct {
	key   string
	label string
}

type templateGroup struct {
	heading string
	fields  []templateField
}

var reportTemplates = map[string]func() (string, []templateGroup){
	TemplateAppraisalReport: appraisalTemplate,
}

// BuildFieldMap flattens a record into the report field map. Numbers carry two decimals.
func BuildFieldMap(record *models.FacultyRecord, identity *models.Identity, policy scoring.Policy, required []interaction.Role) map[string]string {
	fields := map[string]string{
		"faculty_id":           record.ID,
		"faculty_name":         firstNonEmpty(record.Name, identity.Name),
		"department":           string(record.Department),
		"position":             identity.Position,
		"designation":          identity.Designation,
		"status":               string(record.Status),
		"grand_total":          formatMarks(record.GrandTotal.GrandTotal),
		"grand_total_status":   record.GrandTotal.Status,
		"grand_verified_marks": formatMarks(record.GrandVerifiedMarks),
	}

	var sectionA float64
	for _, letter := range scoring.Letters {
		prefix := strings.ToLower(string(letter))
		section, err := scoring.Decode(letter, record.Sections[letter])
		if err != nil {
			for _, key := range scoring.CategoryKeys(letter) {
				fields[prefix+"_"+key+"_marks"] = formatMarks(0)
				fields[prefix+"_"+key+"_verified_marks"] = formatMarks(0)
			}
			fields["section_"+prefix+"_total"] = formatMarks(0)
			fields["section_"+prefix+"_verified"] = formatMarks(0)
			continue
		}
		for _, category := range scoring.Breakdown(section) {
			fields[prefix+"_"+category.Key+"_marks"] = formatMarks(category.Marks)
			fields[prefix+"_"+category.Key+"_verified_marks"] = formatMarks(category.VerifiedMarks)
		}
		totals := scoring.Totals(section)
		fields["section_"+prefix+"_total"] = formatMarks(totals.TotalMarks)
		fields["section_"+prefix+"_verified"] = formatMarks(totals.VerifiedMarks)
		if letter == scoring.SectionA {
			sectionA = totals.TotalMarks
		}
	}

	fields["section_a_normalized"] = missingField
	if normalized, err := scoring.NormalizeForPosition(sectionA, identity.Position); err == nil {
		fields["section_a_normalized"] = formatMarks(normalized)
	}

	agg := interaction.NewAggregator(record.Interaction, required)
	summary := agg.Summary()
	fields["interaction_average"] = formatMarks(summary.Average)
	fields["interaction_total_reviews"] = strconv.Itoa(summary.TotalReviews)

	b := scoring.ComposeFinalScore(record.GrandVerifiedMarks, identity.Designation, agg.Values(), policy)
	fields["extra_marks_for_designation"] = formatMarks(b.ExtraMarks)
	fields["verified_marks_with_bonus"] = formatMarks(b.VerifiedWithBonus)
	fields["capped_verified_marks"] = formatMarks(b.CappedVerified)
	fields["scaled_verified_marks"] = formatMarks(b.ScaledVerified)
	fields["scaled_interaction_marks"] = formatMarks(b.ScaledInteraction)
	fields["calculated_total"] = formatMarks(b.CalculatedTotal)
	fields["total_marks"] = formatMarks(b.TotalMarks)
	fields["is_capped"] = strconv.FormatBool(b.IsCapped)
	return fields
}

// Fill lays a field map out according to a named template. Keys the map does
// not carry render as "-".
func Fill(templateRef string, fields map[string]string) (*export.Document, error) {
	build, ok := reportTemplates[templateRef]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report template %q", templateRef))
	}
	title, groups := build()
	doc := &export.Document{
		Title:    title,
		Subtitle: strings.TrimSpace(fields["faculty_name"] + " (" + fields["faculty_id"] + ")"),
	}
	for _, group := range groups {
		rendered := export.Group{Heading: group.heading}
		for _, field := range group.fields {
			value, ok := fields[field.key]
			if !ok || value == "" {
				value = missingField
			}
			rendered.Rows = append(rendered.Rows, export.Row{Label: field.label, Value: value})
		}
		doc.Groups = append(doc.Groups, rendered)
	}
	return doc, nil
}

func appraisalTemplate() (string, []templateGroup) {
	groups := []templateGroup{{
		heading: "Faculty",
		fields: []templateField{
			{"faculty_id", "Faculty ID"},
			{"faculty_name", "Name"},
			{"department", "Department"},
			{"position", "Position"},
			{"designation", "Designation"},
			{"status", "Appraisal status"},
		},
	}}
	for _, letter := range scoring.Letters {
		prefix := strings.ToLower(string(letter))
		group := templateGroup{heading: fmt.Sprintf("Section %s: %s", letter, scoring.Title(letter))}
		for _, key := range scoring.CategoryKeys(letter) {
			label := humanize(key)
			group.fields = append(group.fields,
				templateField{prefix + "_" + key + "_marks", label},
				templateField{prefix + "_" + key + "_verified_marks", label + " (verified)"},
			)
		}
		group.fields = append(group.fields,
			templateField{"section_" + prefix + "_total", "Section total"},
			templateField{"section_" + prefix + "_verified", "Section verified total"},
		)
		groups = append(groups, group)
	}
	groups = append(groups,
		templateGroup{heading: "Totals", fields: []templateField{
			{"section_a_normalized", "Section A normalized for position"},
			{"grand_total", "Grand total"},
			{"grand_total_status", "Grand total status"},
			{"grand_verified_marks", "Grand verified marks"},
		}},
		templateGroup{heading: "Interaction", fields: []templateField{
			{"interaction_average", "Average rating"},
			{"interaction_total_reviews", "Ratings received"},
		}},
		templateGroup{heading: "Final score", fields: []templateField{
			{"extra_marks_for_designation", "Designation bonus"},
			{"verified_marks_with_bonus", "Verified marks with bonus"},
			{"capped_verified_marks", "Capped verified marks"},
			{"scaled_verified_marks", "Scaled verified marks"},
			{"scaled_interaction_marks", "Scaled interaction marks"},
			{"calculated_total", "Calculated total"},
			{"total_marks", "Final total"},
			{"is_capped", "Capped at ceiling"},
		}},
	)
	return "Faculty Appraisal Report", groups
}

func humanize(key string) string {
	label := strings.ReplaceAll(key, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
