package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/soukhub/vitrine/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// SlotRepository implements domain.SlotRepository using SQLite. Every
// mutation is a single UPDATE whose WHERE clause carries the expected
// status, so racing callers are decided by RowsAffected.
type SlotRepository struct {
	db *sql.DB
}

// Compile-time check: SlotRepository implements domain.SlotRepository.
var _ domain.SlotRepository = (*SlotRepository)(nil)

// New opens a SQLite database, runs migrations, and returns a ready
// repository. The migration seeds the fixed pool of 25 slots.
func New(dataSourceName string) (*SlotRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready repository. Use this when the *sql.DB has been
// pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*SlotRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &SlotRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SlotRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (e.g., river, the seller directory, the audit sink).
func (r *SlotRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

const slotColumns = `id, slot_status,
	live_seller_id, live_name_en, live_name_fr, live_description_en, live_description_fr,
	live_price, live_currency, live_categories, live_delivery, live_tags, live_images,
	start_time, end_time, featured, view_count,
	draft_status,
	draft_name_en, draft_name_fr, draft_description_en, draft_description_fr,
	draft_price, draft_currency, draft_categories, draft_delivery, draft_tags, draft_images,
	draft_seller_contact, draft_updated_at,
	created_at, updated_at`

func (r *SlotRepository) GetByID(ctx context.Context, id int) (domain.Slot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ?`, id,
	)
	slot, err := scanSlot(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	if err != nil {
		return domain.Slot{}, fmt.Errorf("scanning slot: %w", err)
	}
	return slot, nil
}

func (r *SlotRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Slot, int, error) {
	where := ` WHERE 1=1`
	var args []any

	if filter.Status != nil {
		where += ` AND slot_status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.DraftStatus != nil {
		where += ` AND draft_status = ?`
		args = append(args, string(*filter.DraftStatus))
	}
	if filter.Search != "" {
		where += ` AND (live_name_en LIKE ? OR live_name_fr LIKE ?
			OR live_description_en LIKE ? OR live_description_fr LIKE ?
			OR draft_name_en LIKE ? OR draft_name_fr LIKE ?
			OR draft_description_en LIKE ? OR draft_description_fr LIKE ?)`
		pattern := "%" + filter.Search + "%"
		for i := 0; i < 8; i++ {
			args = append(args, pattern)
		}
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting slots: %w", err)
	}

	query := `SELECT ` + slotColumns + ` FROM slots` + where + ` ORDER BY id`
	if filter.PageSize > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.PageSize)
		if filter.Page > 1 {
			query += ` OFFSET ?`
			args = append(args, (filter.Page-1)*filter.PageSize)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing slots: %w", err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		slot, err := scanSlot(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning slot row: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, total, rows.Err()
}

func (r *SlotRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slot_status, COUNT(*) FROM slots GROUP BY slot_status`,
	)
	if err != nil {
		return domain.StatusCounts{}, fmt.Errorf("counting by status: %w", err)
	}
	defer rows.Close()

	var counts domain.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.StatusCounts{}, fmt.Errorf("scanning count row: %w", err)
		}
		switch domain.SlotStatus(status) {
		case domain.SlotLive:
			counts.Live = n
		case domain.SlotMaintenance:
			counts.Maintenance = n
		}
	}

	return counts, rows.Err()
}

func (r *SlotRepository) UpsertDraft(ctx context.Context, id int, draft domain.DraftContent, now time.Time) error {
	categories, delivery, tags, images, err := marshalCollections(draft.Categories, draft.Delivery, draft.Tags, draft.Images)
	if err != nil {
		return err
	}

	stamp := now.UTC().Format(timeFormat)
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET
			draft_status = ?,
			draft_name_en = ?, draft_name_fr = ?,
			draft_description_en = ?, draft_description_fr = ?,
			draft_price = ?, draft_currency = ?,
			draft_categories = ?, draft_delivery = ?, draft_tags = ?, draft_images = ?,
			draft_seller_contact = ?,
			draft_updated_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(domain.DraftDrafting),
		draft.Name.EN, draft.Name.FR,
		draft.Description.EN, draft.Description.FR,
		draft.Price, draft.Currency,
		categories, delivery, tags, images,
		draft.SellerContact,
		stamp, stamp, id,
	)
	if err != nil {
		return fmt.Errorf("upserting draft: %w", err)
	}
	return requireRow(result)
}

func (r *SlotRepository) MarkDraftReady(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET draft_status = ?, updated_at = ?
		 WHERE id = ? AND draft_status = ?`,
		string(domain.DraftReady), nowStamp(), id, string(domain.DraftDrafting),
	)
	if err != nil {
		return false, fmt.Errorf("marking draft ready: %w", err)
	}
	return oneRow(result)
}

// PublishDraft is the atomic copy-and-reset: SQLite evaluates the SET
// expressions against the pre-update row, so the draft columns flow into
// the live columns and are nulled in the same statement. The WHERE clause
// carries both preconditions, so a racing second approval matches no row.
func (r *SlotRepository) PublishDraft(ctx context.Context, id int, sellerID string, start, end time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET
			slot_status = ?,
			live_seller_id = ?,
			live_name_en = draft_name_en, live_name_fr = draft_name_fr,
			live_description_en = draft_description_en, live_description_fr = draft_description_fr,
			live_price = draft_price, live_currency = draft_currency,
			live_categories = draft_categories, live_delivery = draft_delivery,
			live_tags = draft_tags, live_images = draft_images,
			start_time = ?, end_time = ?,
			featured = 0, view_count = 0,
			draft_status = ?,
			draft_name_en = NULL, draft_name_fr = NULL,
			draft_description_en = NULL, draft_description_fr = NULL,
			draft_price = NULL, draft_currency = NULL,
			draft_categories = NULL, draft_delivery = NULL,
			draft_tags = NULL, draft_images = NULL,
			draft_seller_contact = NULL, draft_updated_at = NULL,
			updated_at = ?
		 WHERE id = ? AND draft_status = ? AND slot_status != ?`,
		string(domain.SlotLive),
		sellerID,
		start.UTC().Format(timeFormat), end.UTC().Format(timeFormat),
		string(domain.DraftEmpty),
		nowStamp(),
		id, string(domain.DraftReady), string(domain.SlotMaintenance),
	)
	if err != nil {
		return false, fmt.Errorf("publishing draft: %w", err)
	}
	return oneRow(result)
}

func (r *SlotRepository) ClearDraft(ctx context.Context, id int, expected domain.DraftStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET
			draft_status = ?,
			draft_name_en = NULL, draft_name_fr = NULL,
			draft_description_en = NULL, draft_description_fr = NULL,
			draft_price = NULL, draft_currency = NULL,
			draft_categories = NULL, draft_delivery = NULL,
			draft_tags = NULL, draft_images = NULL,
			draft_seller_contact = NULL, draft_updated_at = NULL,
			updated_at = ?
		 WHERE id = ? AND draft_status = ?`,
		string(domain.DraftEmpty), nowStamp(), id, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("clearing draft: %w", err)
	}
	return oneRow(result)
}

func (r *SlotRepository) EnableMaintenance(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET slot_status = ?, `+clearLiveColumns+`, updated_at = ?
		 WHERE id = ?`,
		string(domain.SlotMaintenance), nowStamp(), id,
	)
	if err != nil {
		return fmt.Errorf("enabling maintenance: %w", err)
	}
	return requireRow(result)
}

func (r *SlotRepository) DisableMaintenance(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET slot_status = ?, updated_at = ?
		 WHERE id = ? AND slot_status = ?`,
		string(domain.SlotEmpty), nowStamp(), id, string(domain.SlotMaintenance),
	)
	if err != nil {
		return false, fmt.Errorf("disabling maintenance: %w", err)
	}
	return oneRow(result)
}

func (r *SlotRepository) ClearLive(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET slot_status = ?, `+clearLiveColumns+`, updated_at = ?
		 WHERE id = ?`,
		string(domain.SlotEmpty), nowStamp(), id,
	)
	if err != nil {
		return fmt.Errorf("clearing live content: %w", err)
	}
	return requireRow(result)
}

func (r *SlotRepository) IncrementViews(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET view_count = view_count + 1
		 WHERE id = ? AND slot_status = ?`,
		id, string(domain.SlotLive),
	)
	if err != nil {
		return false, fmt.Errorf("incrementing views: %w", err)
	}
	return oneRow(result)
}

func (r *SlotRepository) SetFeatured(ctx context.Context, id int, featured bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE slots SET featured = ?, updated_at = ?
		 WHERE id = ? AND slot_status = ?`,
		featured, nowStamp(), id, string(domain.SlotLive),
	)
	if err != nil {
		return false, fmt.Errorf("setting featured: %w", err)
	}
	return oneRow(result)
}

// clearLiveColumns nulls every live-content and timing field, keeping
// invariant 2: non-live slots carry no listing data.
const clearLiveColumns = `
	live_seller_id = NULL,
	live_name_en = NULL, live_name_fr = NULL,
	live_description_en = NULL, live_description_fr = NULL,
	live_price = NULL, live_currency = NULL,
	live_categories = NULL, live_delivery = NULL,
	live_tags = NULL, live_images = NULL,
	start_time = NULL, end_time = NULL,
	featured = 0, view_count = 0`

func nowStamp() string {
	return time.Now().UTC().Format(timeFormat)
}

func parseStamp(v string) (time.Time, error) {
	return time.Parse(timeFormat, v)
}

// requireRow maps an unconditional update that matched nothing to
// ErrSlotNotFound. With the seeded pool this only fires for ids outside
// the domain.
func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

// oneRow reports whether a conditional update won its compare-and-swap.
func oneRow(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows == 1, nil
}

func marshalCollections(categories []string, delivery []domain.DeliveryOption, tags, images []string) (string, string, string, string, error) {
	cats, err := json.Marshal(emptyIfNil(categories))
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshaling categories: %w", err)
	}
	del, err := json.Marshal(deliveryJSON(delivery))
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshaling delivery options: %w", err)
	}
	tg, err := json.Marshal(emptyIfNil(tags))
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshaling tags: %w", err)
	}
	img, err := json.Marshal(emptyIfNil(images))
	if err != nil {
		return "", "", "", "", fmt.Errorf("marshaling images: %w", err)
	}
	return string(cats), string(del), string(tg), string(img), nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// deliveryOptionJSON is the stored representation of a delivery option.
type deliveryOptionJSON struct {
	LabelEN string `json:"label_en"`
	LabelFR string `json:"label_fr"`
	Price   int64  `json:"price"`
}

func deliveryJSON(opts []domain.DeliveryOption) []deliveryOptionJSON {
	out := make([]deliveryOptionJSON, 0, len(opts))
	for _, o := range opts {
		out = append(out, deliveryOptionJSON{LabelEN: o.Label.EN, LabelFR: o.Label.FR, Price: o.Price})
	}
	return out
}

func deliveryFromJSON(raw string) ([]domain.DeliveryOption, error) {
	if raw == "" {
		return nil, nil
	}
	var stored []deliveryOptionJSON
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("unmarshaling delivery options: %w", err)
	}
	out := make([]domain.DeliveryOption, 0, len(stored))
	for _, o := range stored {
		out = append(out, domain.DeliveryOption{
			Label: domain.LocalizedText{EN: o.LabelEN, FR: o.LabelFR},
			Price: o.Price,
		})
	}
	return out, nil
}

func stringsFromJSON(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("unmarshaling string list: %w", err)
	}
	return out, nil
}

// scanSlot reads a full slot row through the given scan function, working
// for both *sql.Row and *sql.Rows.
func scanSlot(scan func(dest ...any) error) (domain.Slot, error) {
	var (
		s domain.Slot

		slotStatus string

		liveSellerID, liveNameEN, liveNameFR       sql.NullString
		liveDescEN, liveDescFR, liveCurrency       sql.NullString
		livePrice                                  sql.NullInt64
		liveCategories, liveDelivery               sql.NullString
		liveTags, liveImages                       sql.NullString
		startTime, endTime                         sql.NullString
		featured                                   bool
		viewCount                                  int64
		draftStatus                                string
		draftNameEN, draftNameFR                   sql.NullString
		draftDescEN, draftDescFR, draftCurrency    sql.NullString
		draftPrice                                 sql.NullInt64
		draftCategories, draftDelivery             sql.NullString
		draftTags, draftImages, draftSellerContact sql.NullString
		draftUpdatedAt                             sql.NullString
		createdAt, updatedAt                       string
	)

	err := scan(
		&s.ID, &slotStatus,
		&liveSellerID, &liveNameEN, &liveNameFR, &liveDescEN, &liveDescFR,
		&livePrice, &liveCurrency, &liveCategories, &liveDelivery, &liveTags, &liveImages,
		&startTime, &endTime, &featured, &viewCount,
		&draftStatus,
		&draftNameEN, &draftNameFR, &draftDescEN, &draftDescFR,
		&draftPrice, &draftCurrency, &draftCategories, &draftDelivery, &draftTags, &draftImages,
		&draftSellerContact, &draftUpdatedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Slot{}, err
	}

	s.Status = domain.SlotStatus(slotStatus)
	s.DraftStatus = domain.DraftStatus(draftStatus)
	s.Featured = featured
	s.ViewCount = viewCount
	s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	s.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	s.StartTime = parseNullTime(startTime)
	s.EndTime = parseNullTime(endTime)
	s.DraftUpdatedAt = parseNullTime(draftUpdatedAt)

	if s.Status == domain.SlotLive {
		categories, err := stringsFromJSON(liveCategories.String)
		if err != nil {
			return domain.Slot{}, err
		}
		delivery, err := deliveryFromJSON(liveDelivery.String)
		if err != nil {
			return domain.Slot{}, err
		}
		tags, err := stringsFromJSON(liveTags.String)
		if err != nil {
			return domain.Slot{}, err
		}
		images, err := stringsFromJSON(liveImages.String)
		if err != nil {
			return domain.Slot{}, err
		}
		s.Live = &domain.LiveContent{
			SellerID:    liveSellerID.String,
			Name:        domain.LocalizedText{EN: liveNameEN.String, FR: liveNameFR.String},
			Description: domain.LocalizedText{EN: liveDescEN.String, FR: liveDescFR.String},
			Price:       livePrice.Int64,
			Currency:    liveCurrency.String,
			Categories:  categories,
			Delivery:    delivery,
			Tags:        tags,
			Images:      images,
		}
	}

	if s.DraftStatus != domain.DraftEmpty {
		categories, err := stringsFromJSON(draftCategories.String)
		if err != nil {
			return domain.Slot{}, err
		}
		delivery, err := deliveryFromJSON(draftDelivery.String)
		if err != nil {
			return domain.Slot{}, err
		}
		tags, err := stringsFromJSON(draftTags.String)
		if err != nil {
			return domain.Slot{}, err
		}
		images, err := stringsFromJSON(draftImages.String)
		if err != nil {
			return domain.Slot{}, err
		}
		s.Draft = &domain.DraftContent{
			Name:          domain.LocalizedText{EN: draftNameEN.String, FR: draftNameFR.String},
			Description:   domain.LocalizedText{EN: draftDescEN.String, FR: draftDescFR.String},
			Price:         draftPrice.Int64,
			Currency:      draftCurrency.String,
			Categories:    categories,
			Delivery:      delivery,
			Tags:          tags,
			Images:        images,
			SellerContact: draftSellerContact.String,
		}
	}

	return s, nil
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return nil
	}
	return &t
}
