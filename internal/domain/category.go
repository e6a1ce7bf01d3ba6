package domain

// AppealCategory classifies what an appeal is about.
type AppealCategory string

const (
	CategoryScholarship AppealCategory = "SCHOLARSHIP"
	CategoryDormitory   AppealCategory = "DORMITORY"
	CategoryEvents      AppealCategory = "EVENTS"
	CategoryProposal    AppealCategory = "PROPOSAL"
	CategoryComplaint   AppealCategory = "COMPLAINT"
	CategoryOther       AppealCategory = "OTHER"
)

// CategoryInfo holds presentation metadata for a category. Kept in a
// lookup table so no behavior lives on the enum itself.
type CategoryInfo struct {
	DisplayName string
	Icon        string
}

var categoryInfo = map[AppealCategory]CategoryInfo{
	CategoryScholarship: {DisplayName: "Scholarship", Icon: "🎓"},
	CategoryDormitory:   {DisplayName: "Dormitory", Icon: "🏠"},
	CategoryEvents:      {DisplayName: "Events", Icon: "🎉"},
	CategoryProposal:    {DisplayName: "Proposal", Icon: "💡"},
	CategoryComplaint:   {DisplayName: "Complaint", Icon: "⚠️"},
	CategoryOther:       {DisplayName: "Other", Icon: "📋"},
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c AppealCategory) bool {
	_, ok := categoryInfo[c]
	return ok
}

// CategoryDisplay returns presentation metadata for a category.
func CategoryDisplay(c AppealCategory) (CategoryInfo, bool) {
	info, ok := categoryInfo[c]
	return info, ok
}

// Categories lists every known category.
func Categories() []AppealCategory {
	return []AppealCategory{
		CategoryScholarship,
		CategoryDormitory,
		CategoryEvents,
		CategoryProposal,
		CategoryComplaint,
		CategoryOther,
	}
}
