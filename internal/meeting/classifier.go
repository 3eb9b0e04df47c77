package meeting

import "strings"

// Classifier decides external status and recipient routing against one
// internal domain and one owner address.
type Classifier struct {
	InternalDomain string
	OwnerEmail     string
}

// NewClassifier normalizes the domain and owner address.
func NewClassifier(internalDomain, ownerEmail string) Classifier {
	return Classifier{
		InternalDomain: strings.TrimPrefix(normalizeEmail(internalDomain), "@"),
		OwnerEmail:     normalizeEmail(ownerEmail),
	}
}

// IsExternal is true when at least one attendee address is outside the
// internal domain.
func (c Classifier) IsExternal(attendees []Attendee) bool {
	for _, att := range attendees {
		if c.isExternalAddress(att.Email) {
			return true
		}
	}
	return false
}

// PartitionRecipients drops the owner and sorts the rest into To (external)
// or CC (internal). Addresses are lowercased and appear at most once.
func (c Classifier) PartitionRecipients(attendees []Attendee) RecipientSet {
	var set RecipientSet
	seen := map[string]struct{}{}
	owner := normalizeEmail(c.OwnerEmail)
	for _, att := range attendees {
		email := normalizeEmail(att.Email)
		if email == "" || att.IsOwner || email == owner {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		if c.isInternalAddress(email) {
			set.CC = append(set.CC, email)
		} else {
			set.To = append(set.To, email)
		}
	}
	return set
}

func (c Classifier) isExternalAddress(email string) bool {
	email = normalizeEmail(email)
	return email != "" && !c.isInternalAddress(email)
}

func (c Classifier) isInternalAddress(email string) bool {
	domain := strings.TrimPrefix(normalizeEmail(c.InternalDomain), "@")
	if domain == "" {
		return false
	}
	return strings.HasSuffix(normalizeEmail(email), "@"+domain)
}
