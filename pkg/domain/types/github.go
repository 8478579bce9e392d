package types

const (
	// ProtectionPreviewMediaType opts into the branch protection review API preview
	ProtectionPreviewMediaType = "application/vnd.github.luke-cage-preview+json"

	// DefaultAPIBaseURL is the public GitHub REST API endpoint
	DefaultAPIBaseURL = "https://api.github.com/"
)
