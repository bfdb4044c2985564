package domain

// ValidateForPublish checks that a draft carries the fields a listing
// cannot go live without. It is enforced when a draft is marked ready,
// not on save, so partial drafts stay saveable.
func (d *DraftContent) ValidateForPublish() error {
	if d == nil {
		return &DraftValidationError{Field: "draft", Reason: "no draft content"}
	}
	if d.Name.Empty() {
		return &DraftValidationError{Field: "name", Reason: "required in at least one locale"}
	}
	if d.Price <= 0 {
		return &DraftValidationError{Field: "price", Reason: "must be positive"}
	}
	if d.Currency == "" {
		return &DraftValidationError{Field: "currency", Reason: "required"}
	}
	return nil
}
