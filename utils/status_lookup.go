package utils

import (
	"strings"

	"journal-workflow-api/models"
)

var (
	manuscriptStatusSynonyms = map[models.ManuscriptStatus][]string{
		models.StatusDraft: {
			"draft",
		},
		models.StatusSubmitted: {
			"submitted",
			"new",
		},
		models.StatusUnderReview: {
			"under_review",
			"under-review",
			"in_review",
			"review",
		},
		models.StatusRevisionRequired: {
			"revision_required",
			"revision-required",
			"revision",
			"needs_revision",
		},
		models.StatusAccepted: {
			"accepted",
		},
		models.StatusRejected: {
			"rejected",
		},
		models.StatusPublished: {
			"published",
		},
	}
	statusAliasToCanonical = buildStatusAliasMap()

	manuscriptStatusLabels = map[models.ManuscriptStatus]string{
		models.StatusDraft:            "Draft",
		models.StatusSubmitted:        "Submitted",
		models.StatusUnderReview:      "Under Review",
		models.StatusRevisionRequired: "Revision Required",
		models.StatusAccepted:         "Accepted",
		models.StatusRejected:         "Rejected",
		models.StatusPublished:        "Published",
	}

	recommendationLabels = map[models.Recommendation]string{
		models.RecommendAccept:        "Accept",
		models.RecommendMinorRevision: "Minor Revision",
		models.RecommendMajorRevision: "Major Revision",
		models.RecommendReject:        "Reject",
	}
)

func buildStatusAliasMap() map[string]models.ManuscriptStatus {
	aliasMap := make(map[string]models.ManuscriptStatus)
	for canonical, synonyms := range manuscriptStatusSynonyms {
		aliasMap[normalizeStatusCode(string(canonical))] = canonical
		for _, alias := range synonyms {
			if normalized := normalizeStatusCode(alias); normalized != "" {
				aliasMap[normalized] = canonical
			}
		}
	}
	return aliasMap
}

func normalizeStatusCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ParseManuscriptStatus maps a query value to a status, accepting the labels
// the submission UI shows alongside the canonical codes.
func ParseManuscriptStatus(raw string) (models.ManuscriptStatus, bool) {
	key := normalizeStatusCode(raw)
	if status, ok := statusAliasToCanonical[key]; ok {
		return status, true
	}
	for status, label := range manuscriptStatusLabels {
		if strings.EqualFold(label, strings.TrimSpace(raw)) {
			return status, true
		}
	}
	return "", false
}

// StatusLabel returns the display label for status.
func StatusLabel(status models.ManuscriptStatus) string {
	if label, ok := manuscriptStatusLabels[status]; ok {
		return label
	}
	return string(status)
}

// RecommendationLabel returns the display label for a recommendation or outcome code.
func RecommendationLabel(code string) string {
	if label, ok := recommendationLabels[models.Recommendation(normalizeStatusCode(code))]; ok {
		return label
	}
	return code
}
