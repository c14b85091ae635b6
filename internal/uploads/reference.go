package uploads

import (
	"fmt"
	"net/url"
	"strings"
)

// MaxReferencesPerField caps attachments on a single message or content entry.
const MaxReferencesPerField = 10

// ValidateReferences checks that every ref is an absolute http(s) URL, which
// is what PresignUpload hands back as the durable reference. Blank entries are
// rejected rather than skipped.
func ValidateReferences(field string, refs []string) error {
	if len(refs) > MaxReferencesPerField {
		return fmt.Errorf("%s accepts at most %d references", field, MaxReferencesPerField)
	}
	for i, ref := range refs {
		if err := validateReference(ref); err != nil {
			return fmt.Errorf("%s[%d]: %w", field, i, err)
		}
	}
	return nil
}

func validateReference(ref string) error {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return fmt.Errorf("reference is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("reference is not a url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("reference must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("reference must be absolute")
	}
	return nil
}

// MergeReferences appends additions to existing, dropping duplicates and
// keeping first-seen order.
func MergeReferences(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(additions))
	out := make([]string, 0, len(existing)+len(additions))
	for _, list := range [][]string{existing, additions} {
		for _, ref := range list {
			ref = strings.TrimSpace(ref)
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}
