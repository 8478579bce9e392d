package model

// BranchProtectionSpec is the request body of the branch protection update.
// Field names follow the GitHub REST API.
type BranchProtectionSpec struct {
	RequiredStatusChecks       *RequiredStatusChecks       `json:"required_status_checks"`
	EnforceAdmins              bool                        `json:"enforce_admins"`
	RequiredPullRequestReviews *RequiredPullRequestReviews `json:"required_pull_request_reviews"`
	Restrictions               *PushRestrictions           `json:"restrictions"`
}

// RequiredStatusChecks lists the checks that must pass before merging
type RequiredStatusChecks struct {
	Strict   bool     `json:"strict"`
	Contexts []string `json:"contexts"`
}

// RequiredPullRequestReviews is the pull request review policy
type RequiredPullRequestReviews struct {
	DismissalRestrictions        *DismissalRestrictions `json:"dismissal_restrictions"`
	DismissStaleReviews          bool                   `json:"dismiss_stale_reviews"`
	RequireCodeOwnerReviews      bool                   `json:"require_code_owner_reviews"`
	RequiredApprovingReviewCount int                    `json:"required_approving_review_count"`
}

// DismissalRestrictions lists who may dismiss pull request reviews
type DismissalRestrictions struct {
	Users []string `json:"users"`
	Teams []string `json:"teams"`
}

// PushRestrictions lists who may push to the branch. All lists empty means
// nobody besides what the protection rules allow.
type PushRestrictions struct {
	Users []string `json:"users"`
	Teams []string `json:"teams"`
	Apps  []string `json:"apps"`
}

// DefaultBranchProtection returns the protection applied to every new
// repository. A fresh value is returned on each call so callers cannot
// share mutations.
func DefaultBranchProtection() *BranchProtectionSpec {
	return &BranchProtectionSpec{
		RequiredStatusChecks: &RequiredStatusChecks{
			Strict:   false,
			Contexts: []string{},
		},
		EnforceAdmins: true,
		RequiredPullRequestReviews: &RequiredPullRequestReviews{
			DismissalRestrictions: &DismissalRestrictions{
				Users: []string{},
				Teams: []string{},
			},
			DismissStaleReviews:          false,
			RequireCodeOwnerReviews:      true,
			RequiredApprovingReviewCount: 1,
		},
		Restrictions: &PushRestrictions{
			Users: []string{},
			Teams: []string{},
			Apps:  []string{},
		},
	}
}
