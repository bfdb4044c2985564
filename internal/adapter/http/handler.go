package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/soukhub/vitrine/internal/app"
	"github.com/soukhub/vitrine/internal/domain"
)

// LocalizedTextBody is the API representation of per-locale text.
type LocalizedTextBody struct {
	EN string `json:"en,omitempty" doc:"English text"`
	FR string `json:"fr,omitempty" doc:"French text"`
}

// DeliveryOptionBody is the API representation of a delivery option.
type DeliveryOptionBody struct {
	Label LocalizedTextBody `json:"label" doc:"Option label"`
	Price int64             `json:"price" minimum:"0" doc:"Price in minor units"`
}

// ListingResponse is the API representation of live content.
type ListingResponse struct {
	SellerID    string               `json:"seller_id" doc:"Resolved seller identity"`
	Name        LocalizedTextBody    `json:"name"`
	Description LocalizedTextBody    `json:"description"`
	Price       int64                `json:"price" doc:"Price in minor units"`
	Currency    string               `json:"currency" doc:"ISO currency code"`
	Categories  []string             `json:"categories,omitempty"`
	Delivery    []DeliveryOptionBody `json:"delivery_options,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Images      []string             `json:"images,omitempty" doc:"Ordered image references"`
}

// DraftResponse is the API representation of staged draft content.
type DraftResponse struct {
	Name          LocalizedTextBody    `json:"name"`
	Description   LocalizedTextBody    `json:"description"`
	Price         int64                `json:"price"`
	Currency      string               `json:"currency"`
	Categories    []string             `json:"categories,omitempty"`
	Delivery      []DeliveryOptionBody `json:"delivery_options,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
	Images        []string             `json:"images,omitempty"`
	SellerContact string               `json:"seller_contact,omitempty" doc:"Contact token resolved at publish time"`
	UpdatedAt     string               `json:"updated_at,omitempty" doc:"Last draft save (ISO 8601)"`
}

// SlotResponse is the API representation of a slot.
type SlotResponse struct {
	ID          int              `json:"id" doc:"Slot number (1-25)"`
	Status      string           `json:"status" doc:"Operational state"`
	Listing     *ListingResponse `json:"listing,omitempty" doc:"Present only when live"`
	StartTime   string           `json:"start_time,omitempty" doc:"Listing start (ISO 8601)"`
	EndTime     string           `json:"end_time,omitempty" doc:"Listing end (ISO 8601)"`
	Featured    bool             `json:"featured"`
	ViewCount   int64            `json:"view_count"`
	DraftStatus string           `json:"draft_status" doc:"Draft state"`
	Draft       *DraftResponse   `json:"draft,omitempty" doc:"Present unless draft is empty"`
	CreatedAt   string           `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt   string           `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeFormat)
}

func toLocalized(t domain.LocalizedText) LocalizedTextBody {
	return LocalizedTextBody{EN: t.EN, FR: t.FR}
}

func fromLocalized(t LocalizedTextBody) domain.LocalizedText {
	return domain.LocalizedText{EN: t.EN, FR: t.FR}
}

func toDeliveryBodies(opts []domain.DeliveryOption) []DeliveryOptionBody {
	if len(opts) == 0 {
		return nil
	}
	out := make([]DeliveryOptionBody, len(opts))
	for i, o := range opts {
		out[i] = DeliveryOptionBody{Label: toLocalized(o.Label), Price: o.Price}
	}
	return out
}

func fromDeliveryBodies(opts []DeliveryOptionBody) []domain.DeliveryOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]domain.DeliveryOption, len(opts))
	for i, o := range opts {
		out[i] = domain.DeliveryOption{Label: fromLocalized(o.Label), Price: o.Price}
	}
	return out
}

func toSlotResponse(s domain.Slot) SlotResponse {
	resp := SlotResponse{
		ID:          s.ID,
		Status:      string(s.Status),
		StartTime:   formatTimePtr(s.StartTime),
		EndTime:     formatTimePtr(s.EndTime),
		Featured:    s.Featured,
		ViewCount:   s.ViewCount,
		DraftStatus: string(s.DraftStatus),
		CreatedAt:   s.CreatedAt.Format(timeFormat),
		UpdatedAt:   s.UpdatedAt.Format(timeFormat),
	}

	if s.Live != nil {
		resp.Listing = &ListingResponse{
			SellerID:    s.Live.SellerID,
			Name:        toLocalized(s.Live.Name),
			Description: toLocalized(s.Live.Description),
			Price:       s.Live.Price,
			Currency:    s.Live.Currency,
			Categories:  s.Live.Categories,
			Delivery:    toDeliveryBodies(s.Live.Delivery),
			Tags:        s.Live.Tags,
			Images:      s.Live.Images,
		}
	}

	if s.Draft != nil {
		resp.Draft = &DraftResponse{
			Name:          toLocalized(s.Draft.Name),
			Description:   toLocalized(s.Draft.Description),
			Price:         s.Draft.Price,
			Currency:      s.Draft.Currency,
			Categories:    s.Draft.Categories,
			Delivery:      toDeliveryBodies(s.Draft.Delivery),
			Tags:          s.Draft.Tags,
			Images:        s.Draft.Images,
			SellerContact: s.Draft.SellerContact,
			UpdatedAt:     formatTimePtr(s.DraftUpdatedAt),
		}
	}

	return resp
}

// actorHeader carries the acting administrator for the audit trail.
type actorHeader struct {
	Actor string `header:"X-Actor-ID" required:"false" doc:"Acting administrator for the audit trail"`
}

// --- Get slot ---

type GetSlotInput struct {
	ID int `path:"id" doc:"Slot number"`
}

type GetSlotOutput struct {
	Body SlotResponse
}

// --- List slots ---

type ListSlotsInput struct {
	Status      string `query:"status" required:"false" enum:"empty,live,maintenance" doc:"Filter by operational state"`
	DraftStatus string `query:"draft_status" required:"false" enum:"empty,drafting,ready_to_publish" doc:"Filter by draft state"`
	Search      string `query:"search" required:"false" doc:"Free-text search over names and descriptions"`
	Page        int    `query:"page" required:"false" default:"1" minimum:"1" doc:"Page number"`
	PageSize    int    `query:"page_size" required:"false" default:"25" minimum:"1" maximum:"25" doc:"Page size"`
}

type ListSlotsOutput struct {
	Body struct {
		Slots []SlotResponse `json:"slots"`
		Total int            `json:"total" doc:"Total matches across pages"`
	}
}

// --- Stats ---

type GetStatsOutput struct {
	Body struct {
		Total       int `json:"total"`
		Live        int `json:"live"`
		Maintenance int `json:"maintenance"`
		Available   int `json:"available"`
	}
}

// --- Save draft ---

type SaveDraftInput struct {
	actorHeader
	ID   int `path:"id" doc:"Slot number"`
	Body struct {
		Name          LocalizedTextBody    `json:"name,omitempty"`
		Description   LocalizedTextBody    `json:"description,omitempty"`
		Price         int64                `json:"price,omitempty" minimum:"0" doc:"Price in minor units"`
		Currency      string               `json:"currency,omitempty" maxLength:"3" doc:"ISO currency code"`
		Categories    []string             `json:"categories,omitempty"`
		Delivery      []DeliveryOptionBody `json:"delivery_options,omitempty"`
		Tags          []string             `json:"tags,omitempty"`
		Images        []string             `json:"images,omitempty"`
		SellerContact string               `json:"seller_contact,omitempty" doc:"Contact token resolved at publish time"`
	}
}

type SaveDraftOutput struct {
	Body SlotResponse
}

// --- Mark ready ---

type MarkReadyInput struct {
	actorHeader
	ID int `path:"id" doc:"Slot number"`
}

type MarkReadyOutput struct {
	Body SlotResponse
}

// --- Approve ---

type ApproveInput struct {
	actorHeader
	ID   int `path:"id" doc:"Slot number"`
	Body struct {
		SellerContact string `json:"seller_contact,omitempty" doc:"Contact token; falls back to the one saved on the draft"`
		DurationDays  int    `json:"duration_days,omitempty" minimum:"1" maximum:"90" doc:"Listing duration (default 7)"`
	}
}

type ApproveOutput struct {
	Body SlotResponse
}

// --- Reject ---

type RejectInput struct {
	actorHeader
	ID   int `path:"id" doc:"Slot number"`
	Body struct {
		Reason string `json:"reason,omitempty" maxLength:"500" doc:"Recorded in the audit trail only"`
	}
}

type RejectOutput struct {
	Body SlotResponse
}

// --- Maintenance ---

type SetMaintenanceInput struct {
	actorHeader
	ID   int `path:"id" doc:"Slot number"`
	Body struct {
		Enabled bool `json:"enabled" doc:"true to park the slot, false to return it to service"`
	}
}

type SetMaintenanceOutput struct {
	Body SlotResponse
}

// --- Remove product ---

type RemoveProductInput struct {
	actorHeader
	ID int `path:"id" doc:"Slot number"`
}

type RemoveProductOutput struct {
	Body SlotResponse
}

// --- Featured ---

type SetFeaturedInput struct {
	actorHeader
	ID   int `path:"id" doc:"Slot number"`
	Body struct {
		Featured bool `json:"featured"`
	}
}

type SetFeaturedOutput struct {
	Body SlotResponse
}

// --- Record view ---

type RecordViewInput struct {
	ID int `path:"id" doc:"Slot number"`
}

type RecordViewOutput struct {
	Status int
}

// Register adds all slot API routes to the Huma API.
func Register(api huma.API, svc *app.SlotService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-slots",
		Method:      http.MethodGet,
		Path:        "/api/v1/slots",
		Summary:     "List slots",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *ListSlotsInput) (*ListSlotsOutput, error) {
		filter := domain.ListFilter{
			Search:   input.Search,
			Page:     input.Page,
			PageSize: input.PageSize,
		}
		if input.Status != "" {
			s := domain.SlotStatus(input.Status)
			filter.Status = &s
		}
		if input.DraftStatus != "" {
			d := domain.DraftStatus(input.DraftStatus)
			filter.DraftStatus = &d
		}

		slots, total, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &ListSlotsOutput{}
		out.Body.Slots = make([]SlotResponse, len(slots))
		for i, s := range slots {
			out.Body.Slots[i] = toSlotResponse(s)
		}
		out.Body.Total = total
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/slots/stats",
		Summary:     "Pool status counts",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, _ *struct{}) (*GetStatsOutput, error) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &GetStatsOutput{}
		out.Body.Total = stats.Total
		out.Body.Live = stats.Live
		out.Body.Maintenance = stats.Maintenance
		out.Body.Available = stats.Available
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-slot",
		Method:      http.MethodGet,
		Path:        "/api/v1/slots/{id}",
		Summary:     "Get a slot by number",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *GetSlotInput) (*GetSlotOutput, error) {
		slot, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetSlotOutput{Body: toSlotResponse(slot)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-draft",
		Method:      http.MethodPut,
		Path:        "/api/v1/slots/{id}/draft",
		Summary:     "Save draft content",
		Tags:        []string{"Drafts"},
	}, func(ctx context.Context, input *SaveDraftInput) (*SaveDraftOutput, error) {
		draft := domain.DraftContent{
			Name:          fromLocalized(input.Body.Name),
			Description:   fromLocalized(input.Body.Description),
			Price:         input.Body.Price,
			Currency:      input.Body.Currency,
			Categories:    input.Body.Categories,
			Delivery:      fromDeliveryBodies(input.Body.Delivery),
			Tags:          input.Body.Tags,
			Images:        input.Body.Images,
			SellerContact: input.Body.SellerContact,
		}
		if err := svc.SaveDraft(ctx, input.Actor, input.ID, draft); err != nil {
			return nil, toHumaError(err)
		}
		return respond(ctx, svc, input.ID, func(s SlotResponse) *SaveDraftOutput {
			return &SaveDraftOutput{Body: s}
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-draft-ready",
		Method:      http.MethodPost,
		Path:        "/api/v1/slots/{id}/draft/ready",
		Summary:     "Mark a draft ready to publish",
		Tags:        []string{"Drafts"},
	}, func(ctx context.Context, input *MarkReadyInput) (*MarkReadyOutput, error) {
		if err := svc.MarkReady(ctx, input.Actor, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return respond(ctx, svc, input.ID, func(s SlotResponse) *MarkReadyOutput {
			return &MarkReadyOutput{Body: s}
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-draft",
		Method:      http.MethodPost,
		Path:        "/api/v1/slots/{id}/draft/approve",
		Summary:     "Approve a ready draft and publish it",
		Tags:        []string{"Drafts"},
	}, func(ctx context.Context, input *ApproveInput) (*ApproveOutput, error) {
		slot, err := svc.Approve(ctx, input.Actor, input.ID, input.Body.SellerContact, input.Body.DurationDays)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ApproveOutput{Body: toSlotResponse(slot)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-draft",
		Method:      http.MethodPost,
		Path:        "/api/v1/slots/{id}/draft/reject",
		Summary:     "Reject a ready draft",
		Tags:        []string{"Drafts"},
	}, func(ctx context.Context, input *RejectInput) (*RejectOutput, error) {
		if err := svc.Reject(ctx, input.Actor, input.ID, input.Body.Reason); err != nil {
			return nil, toHumaError(err)
		}
		return respond(ctx, svc, input.ID, func(s SlotResponse) *RejectOutput {
			return &RejectOutput{Body: s}
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-maintenance",
		Method:      http.MethodPut,
		Path:        "/api/v1/slots/{id}/maintenance",
		Summary:     "Toggle maintenance",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *SetMaintenanceInput) (*SetMaintenanceOutput, error) {
		if err := svc.SetMaintenance(ctx, input.Actor, input.ID, input.Body.Enabled); err != nil {
			return nil, toHumaError(err)
		}
		return respond(ctx, svc, input.ID, func(s SlotResponse) *SetMaintenanceOutput {
			return &SetMaintenanceOutput{Body: s}
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-product",
		Method:      http.MethodDelete,
		Path:        "/api/v1/slots/{id}/listing",
		Summary:     "Retire the live listing",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *RemoveProductInput) (*RemoveProductOutput, error) {
		if err := svc.RemoveProduct(ctx, input.Actor, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return respond(ctx, svc, input.ID, func(s SlotResponse) *RemoveProductOutput {
			return &RemoveProductOutput{Body: s}
		})
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-featured",
		Method:      http.MethodPut,
		Path:        "/api/v1/slots/{id}/featured",
		Summary:     "Toggle the featured flag",
		Tags:        []string{"Slots"},
	}, func(ctx context.Context, input *SetFeaturedInput) (*SetFeaturedOutput, error) {
		if err := svc.SetFeatured(ctx, input.Actor, input.ID, input.Body.Featured); err != nil {
			return nil, toHumaError(err)
		}
		return respond(ctx, svc, input.ID, func(s SlotResponse) *SetFeaturedOutput {
			return &SetFeaturedOutput{Body: s}
		})
	})

	huma.Register(api, huma.Operation{
		OperationID:   "record-view",
		Method:        http.MethodPost,
		Path:          "/api/v1/slots/{id}/views",
		Summary:       "Count one public view",
		Tags:          []string{"Slots"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *RecordViewInput) (*RecordViewOutput, error) {
		if err := svc.RecordView(ctx, input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return &RecordViewOutput{Status: http.StatusNoContent}, nil
	})
}

// respond re-reads the slot after a mutation so the caller sees the state
// it produced.
func respond[T any](ctx context.Context, svc *app.SlotService, id int, wrap func(SlotResponse) T) (T, error) {
	var zero T
	slot, err := svc.Get(ctx, id)
	if err != nil {
		return zero, toHumaError(err)
	}
	return wrap(toSlotResponse(slot)), nil
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrSlotNotFound) {
		return huma.Error404NotFound("slot not found")
	}

	var invalidID *domain.InvalidSlotIDError
	if errors.As(err, &invalidID) {
		return huma.Error422UnprocessableEntity(invalidID.Error())
	}

	var slotTr *domain.SlotTransitionError
	if errors.As(err, &slotTr) {
		return huma.Error409Conflict(slotTr.Error())
	}

	var draftTr *domain.DraftTransitionError
	if errors.As(err, &draftTr) {
		return huma.Error409Conflict(draftTr.Error())
	}

	var pre *domain.PreconditionError
	if errors.As(err, &pre) {
		return huma.Error409Conflict(pre.Error())
	}

	var validation *domain.DraftValidationError
	if errors.As(err, &validation) {
		return huma.Error422UnprocessableEntity(validation.Error())
	}

	var resolution *domain.ResolutionError
	if errors.As(err, &resolution) {
		return huma.Error422UnprocessableEntity(resolution.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
