package domain

import "time"

// SlotCount is the fixed size of the slot pool. Slots are seeded once at
// provisioning time with ids 1..SlotCount and are never created or deleted
// afterwards.
const SlotCount = 25

// ValidSlotID reports whether id falls inside the fixed slot domain.
func ValidSlotID(id int) bool {
	return id >= 1 && id <= SlotCount
}

// SlotStatus is the operational state of a slot.
type SlotStatus string

const (
	SlotEmpty       SlotStatus = "empty"
	SlotLive        SlotStatus = "live"
	SlotMaintenance SlotStatus = "maintenance"
)

// DraftStatus is the draft-content state of a slot. It is an independent
// axis: a live slot may carry a draft for its next listing.
type DraftStatus string

const (
	DraftEmpty    DraftStatus = "empty"
	DraftDrafting DraftStatus = "drafting"
	DraftReady    DraftStatus = "ready_to_publish"
)

// SlotEvent triggers a transition on the operational axis.
type SlotEvent string

const (
	EventPublish        SlotEvent = "publish"
	EventRemoveProduct  SlotEvent = "remove_product"
	EventMaintenanceOn  SlotEvent = "maintenance_on"
	EventMaintenanceOff SlotEvent = "maintenance_off"
)

// DraftEvent triggers a transition on the draft axis.
type DraftEvent string

const (
	EventSaveDraft DraftEvent = "save_draft"
	EventMarkReady DraftEvent = "mark_ready"
	EventApprove   DraftEvent = "approve"
	EventReject    DraftEvent = "reject"
)

// SlotTransition defines a valid operational state change.
type SlotTransition struct {
	Event SlotEvent
	Src   SlotStatus
	Dst   SlotStatus
}

// SlotTransitions defines all valid operational state changes.
// This is domain knowledge consumed by the FSM adapter. Publishing over a
// live slot replaces the running listing; enabling maintenance on a live
// slot force-retires it. Disabling maintenance always lands on empty, it
// never restores a previously live listing.
var SlotTransitions = []SlotTransition{
	{Event: EventPublish, Src: SlotEmpty, Dst: SlotLive},
	{Event: EventPublish, Src: SlotLive, Dst: SlotLive},
	{Event: EventRemoveProduct, Src: SlotEmpty, Dst: SlotEmpty},
	{Event: EventRemoveProduct, Src: SlotLive, Dst: SlotEmpty},
	{Event: EventRemoveProduct, Src: SlotMaintenance, Dst: SlotEmpty},
	{Event: EventMaintenanceOn, Src: SlotEmpty, Dst: SlotMaintenance},
	{Event: EventMaintenanceOn, Src: SlotLive, Dst: SlotMaintenance},
	{Event: EventMaintenanceOn, Src: SlotMaintenance, Dst: SlotMaintenance},
	{Event: EventMaintenanceOff, Src: SlotMaintenance, Dst: SlotEmpty},
}

// DraftTransition defines a valid draft state change.
type DraftTransition struct {
	Event DraftEvent
	Src   DraftStatus
	Dst   DraftStatus
}

// DraftTransitions defines all valid draft state changes. Saving has no
// precondition: the first save moves empty to drafting, later saves are
// idempotent content updates, and saving over a ready draft demotes it
// back to drafting for re-review.
var DraftTransitions = []DraftTransition{
	{Event: EventSaveDraft, Src: DraftEmpty, Dst: DraftDrafting},
	{Event: EventSaveDraft, Src: DraftDrafting, Dst: DraftDrafting},
	{Event: EventSaveDraft, Src: DraftReady, Dst: DraftDrafting},
	{Event: EventMarkReady, Src: DraftDrafting, Dst: DraftReady},
	{Event: EventApprove, Src: DraftReady, Dst: DraftEmpty},
	{Event: EventReject, Src: DraftReady, Dst: DraftEmpty},
}

// LocalizedText holds the two storefront locales.
type LocalizedText struct {
	EN string
	FR string
}

// Empty reports whether no locale has text.
func (t LocalizedText) Empty() bool {
	return t.EN == "" && t.FR == ""
}

// DeliveryOption is one structured delivery choice attached to a listing.
type DeliveryOption struct {
	Label LocalizedText
	Price int64
}

// LiveContent is the listing currently visible in a slot. It is non-nil
// exactly when the slot is live.
type LiveContent struct {
	SellerID    string
	Name        LocalizedText
	Description LocalizedText
	Price       int64
	Currency    string
	Categories  []string
	Delivery    []DeliveryOption
	Tags        []string
	Images      []string
}

// DraftContent is staged listing content for a slot. It is non-nil exactly
// when the draft status is not empty. SellerContact is a contact token
// resolved to a seller identity at publish time.
type DraftContent struct {
	Name          LocalizedText
	Description   LocalizedText
	Price         int64
	Currency      string
	Categories    []string
	Delivery      []DeliveryOption
	Tags          []string
	Images        []string
	SellerContact string
}

// Slot is one of the 25 fixed inventory positions.
type Slot struct {
	ID     int
	Status SlotStatus

	Live      *LiveContent
	StartTime *time.Time
	EndTime   *time.Time
	Featured  bool
	ViewCount int64

	DraftStatus    DraftStatus
	Draft          *DraftContent
	DraftUpdatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultListingDays is the listing duration applied when the approver
// does not override it.
const DefaultListingDays = 7

// Bounds accepted for an approve-time duration override.
const (
	MinListingDays = 1
	MaxListingDays = 90
)
