package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	semverRegex     = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)
	pluginNameRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)
	urlRegex        = regexp.MustCompile(`^https?://[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// ManifestIssue is a non-fatal problem with a manifest. Issues never stop a
// plugin from loading; `hubcap verify` reports them.
type ManifestIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i ManifestIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// LintManifest checks a manifest for style and portability problems
func LintManifest(manifest *Manifest) []ManifestIssue {
	var issues []ManifestIssue

	if manifest.Name != "" && !pluginNameRegex.MatchString(manifest.Name) {
		issues = append(issues, ManifestIssue{
			Field:   "name",
			Message: "should be lowercase alphanumeric with hyphens (e.g., 'fd-extra')",
		})
	}

	if manifest.Version == "" {
		issues = append(issues, ManifestIssue{Field: "version", Message: "version is missing"})
	} else if !isValidSemver(manifest.Version) {
		issues = append(issues, ManifestIssue{
			Field:   "version",
			Message: fmt.Sprintf("%q is not a semantic version (e.g., '1.0.0')", manifest.Version),
		})
	}

	if strings.TrimSpace(manifest.Description) == "" {
		issues = append(issues, ManifestIssue{Field: "description", Message: "description is missing"})
	}

	if manifest.Author == "" {
		issues = append(issues, ManifestIssue{Field: "author", Message: "author is missing"})
	}

	if manifest.Homepage != "" && !urlRegex.MatchString(manifest.Homepage) {
		issues = append(issues, ManifestIssue{Field: "homepage", Message: "homepage URL appears invalid"})
	}

	if filepath.IsAbs(manifest.Library) {
		issues = append(issues, ManifestIssue{
			Field:   "library",
			Message: "absolute library paths break when the plugin directory moves",
		})
	}

	return issues
}

// isValidSemver checks if a version string follows semantic versioning
func isValidSemver(version string) bool {
	return semverRegex.MatchString(version)
}
