package service

import (
	"TicketMarket/collections"
	"TicketMarket/consts"
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)

// Slugify strips accents and keeps a-z, 0-9 and single hyphens.
func Slugify(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, _ := transform.String(t, input)
	normalized = strings.NewReplacer("đ", "d", "Đ", "d").Replace(normalized)

	s := strings.ToLower(normalized)
	s = strings.Join(strings.Fields(s), "-")
	s = nonSlugChars.ReplaceAllString(s, "")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

type CatalogStore interface {
	EventStore
	InsertCoupon(ctx context.Context, c *collections.Coupon) error
	ListCouponsByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]collections.Coupon, error)
}

// Catalog is the organizer tooling for events, ticket types and coupons.
type Catalog struct {
	store    CatalogStore
	currency string
	now      func() time.Time
}

func NewCatalog(store CatalogStore, currency string) *Catalog {
	return &Catalog{store: store, currency: currency, now: time.Now}
}

type EventInput struct {
	OrganizerID  primitive.ObjectID
	Title        string
	Description  string
	StartAt      time.Time
	EndAt        time.Time
	VenueName    string
	VenueAddress string
	VenueMapURL  string
}

func (s *Catalog) CreateEvent(ctx context.Context, in EventInput) (*collections.Event, error) {
	if !in.EndAt.After(in.StartAt) {
		return nil, consts.ErrInvalidSchedule
	}
	now := s.now()
	e := &collections.Event{
		ID:          primitive.NewObjectID(),
		OrganizerID: in.OrganizerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Schedule:    collections.EventSchedule{StartAt: in.StartAt, EndAt: in.EndAt},
		Venue:       collections.EventVenue{Name: in.VenueName, Address: in.VenueAddress, MapURL: in.VenueMapURL},
		Status:      consts.EventDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.Slug = Slugify(e.Title) + "-" + e.ID.Hex()[18:]
	if err := s.store.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	logrus.WithField("event_id", e.ID.Hex()).Info("event created")
	return e, nil
}

// ListPublishedEvents is the public catalogue, soonest first.
func (s *Catalog) ListPublishedEvents(ctx context.Context) ([]collections.Event, error) {
	return s.store.ListPublishedEvents(ctx)
}

// GetEvent returns the event with its ticket types.
func (s *Catalog) GetEvent(ctx context.Context, id primitive.ObjectID) (*collections.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	e.TicketTypes, err = s.store.ListTicketTypes(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ViewEvent is GetEvent for a caller that may be anonymous. Drafts look
// missing to anyone but their organizer.
func (s *Catalog) ViewEvent(ctx context.Context, id, viewerID primitive.ObjectID) (*collections.Event, error) {
	e, err := s.visibleEvent(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	if e.OrganizerID != viewerID {
		e.StaffIDs = nil
	}
	e.TicketTypes, err = s.store.ListTicketTypes(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Catalog) visibleEvent(ctx context.Context, id, viewerID primitive.ObjectID) (*collections.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.VisibleTo(viewerID) {
		return nil, consts.ErrEventNotFound
	}
	return e, nil
}

// AssignStaff lets staffID check tickets in at the event.
func (s *Catalog) AssignStaff(ctx context.Context, eventID, organizerID, staffID primitive.ObjectID) (*collections.Event, error) {
	return s.setStaff(ctx, eventID, organizerID, staffID, true)
}

func (s *Catalog) UnassignStaff(ctx context.Context, eventID, organizerID, staffID primitive.ObjectID) (*collections.Event, error) {
	return s.setStaff(ctx, eventID, organizerID, staffID, false)
}

func (s *Catalog) setStaff(ctx context.Context, eventID, organizerID, staffID primitive.ObjectID, assigned bool) (*collections.Event, error) {
	if _, err := s.ownedEvent(ctx, eventID, organizerID); err != nil {
		return nil, err
	}
	e, err := s.store.SetEventStaff(ctx, eventID, staffID, assigned, s.now())
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"event_id": eventID.Hex(),
		"staff_id": staffID.Hex(),
		"assigned": assigned,
	}).Info("event staff changed")
	return e, nil
}

func (s *Catalog) ownedEvent(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error) {
	e, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.OrganizerID != organizerID {
		return nil, consts.ErrNotEventOrganizer
	}
	return e, nil
}

func (s *Catalog) PublishEvent(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error) {
	return s.setStatus(ctx, id, organizerID, []consts.EventStatus{consts.EventDraft}, consts.EventPublished)
}

func (s *Catalog) CancelEvent(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error) {
	return s.setStatus(ctx, id, organizerID, []consts.EventStatus{consts.EventDraft, consts.EventPublished}, consts.EventCancelled)
}

func (s *Catalog) CompleteEvent(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.Event, error) {
	return s.setStatus(ctx, id, organizerID, []consts.EventStatus{consts.EventPublished}, consts.EventCompleted)
}

func (s *Catalog) setStatus(ctx context.Context, id, organizerID primitive.ObjectID, from []consts.EventStatus, to consts.EventStatus) (*collections.Event, error) {
	if _, err := s.ownedEvent(ctx, id, organizerID); err != nil {
		return nil, err
	}
	e, err := s.store.SetEventStatus(ctx, id, from, to, s.now())
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"event_id": id.Hex(), "status": to}).Info("event status changed")
	return e, nil
}

// DeleteEvent removes an unpublished event nobody has bought or reserved
// tickets for. Anything else has to be cancelled instead.
func (s *Catalog) DeleteEvent(ctx context.Context, id, organizerID primitive.ObjectID) error {
	e, err := s.ownedEvent(ctx, id, organizerID)
	if err != nil {
		return err
	}
	if e.Status == consts.EventPublished {
		return consts.ErrInvalidStatusTransition
	}
	types, err := s.store.ListTicketTypes(ctx, id)
	if err != nil {
		return err
	}
	for _, tt := range types {
		if tt.QuantitySold > 0 || tt.QuantityHeld > 0 {
			return consts.ErrEventHasSales
		}
	}
	err = s.store.DeleteEvent(ctx, id, s.now())
	if errors.Is(err, errPreconditionFailed) {
		return consts.ErrInvalidStatusTransition
	}
	return err
}

type TicketTypeInput struct {
	EventID     primitive.ObjectID
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	MaxPerOrder int
	SalesStart  *time.Time
	SalesEnd    *time.Time
}

func (s *Catalog) CreateTicketType(ctx context.Context, organizerID primitive.ObjectID, in TicketTypeInput) (*collections.TicketType, error) {
	if _, err := s.ownedEvent(ctx, in.EventID, organizerID); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() || !wholeCents(in.Price) {
		return nil, consts.ErrInvalidPrice
	}
	if in.Quantity <= 0 || in.MaxPerOrder < 0 {
		return nil, consts.ErrInvalidQuantity
	}
	if in.SalesStart != nil && in.SalesEnd != nil && !in.SalesEnd.After(*in.SalesStart) {
		return nil, consts.ErrInvalidSchedule
	}

	now := s.now()
	tt := &collections.TicketType{
		ID:                primitive.NewObjectID(),
		EventID:           in.EventID,
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Price:             in.Price,
		Currency:          s.currency,
		QuantityAvailable: in.Quantity,
		MaxPerOrder:       in.MaxPerOrder,
		Active:            true,
		SalesStart:        in.SalesStart,
		SalesEnd:          in.SalesEnd,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.InsertTicketType(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

func (s *Catalog) ListTicketTypes(ctx context.Context, eventID, viewerID primitive.ObjectID) ([]collections.TicketType, error) {
	if _, err := s.visibleEvent(ctx, eventID, viewerID); err != nil {
		return nil, err
	}
	return s.store.ListTicketTypes(ctx, eventID)
}

func (s *Catalog) ownedTicketType(ctx context.Context, id, organizerID primitive.ObjectID) (*collections.TicketType, error) {
	tt, err := s.store.GetTicketType(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedEvent(ctx, tt.EventID, organizerID); err != nil {
		return nil, err
	}
	return tt, nil
}

// IncreaseCapacity raises quantity_available. Capacity never shrinks.
func (s *Catalog) IncreaseCapacity(ctx context.Context, id, organizerID primitive.ObjectID, capacity int) (*collections.TicketType, error) {
	if _, err := s.ownedTicketType(ctx, id, organizerID); err != nil {
		return nil, err
	}
	return s.store.IncreaseCapacity(ctx, id, capacity, s.now())
}

func (s *Catalog) SetTicketTypeActive(ctx context.Context, id, organizerID primitive.ObjectID, active bool) (*collections.TicketType, error) {
	if _, err := s.ownedTicketType(ctx, id, organizerID); err != nil {
		return nil, err
	}
	return s.store.SetTicketTypeActive(ctx, id, active, s.now())
}

type CouponInput struct {
	OrganizerID  primitive.ObjectID
	Code         string
	DiscountType consts.DiscountType
	Value        decimal.Decimal
	EventID      *primitive.ObjectID
	MaxUses      *int
	MinPurchase  decimal.Decimal
	ValidFrom    time.Time
	ValidUntil   *time.Time
}

func (s *Catalog) CreateCoupon(ctx context.Context, in CouponInput) (*collections.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	switch {
	case code == "":
		return nil, consts.ErrInvalidCoupon
	case !in.Value.IsPositive():
		return nil, consts.ErrInvalidCoupon
	case in.DiscountType == consts.DiscountPercentage && in.Value.GreaterThan(hundred):
		return nil, consts.ErrInvalidCoupon
	case in.DiscountType != consts.DiscountPercentage && in.DiscountType != consts.DiscountFixed:
		return nil, consts.ErrInvalidCoupon
	case in.DiscountType == consts.DiscountFixed && !wholeCents(in.Value):
		return nil, consts.ErrInvalidCoupon
	case in.MinPurchase.IsNegative() || !wholeCents(in.MinPurchase):
		return nil, consts.ErrInvalidCoupon
	case in.MaxUses != nil && *in.MaxUses <= 0:
		return nil, consts.ErrInvalidCoupon
	case in.ValidUntil != nil && !in.ValidUntil.After(in.ValidFrom):
		return nil, consts.ErrInvalidSchedule
	}
	if in.EventID != nil {
		if _, err := s.ownedEvent(ctx, *in.EventID, in.OrganizerID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	validFrom := in.ValidFrom
	if validFrom.IsZero() {
		validFrom = now
	}
	c := &collections.Coupon{
		ID:           primitive.NewObjectID(),
		OrganizerID:  in.OrganizerID,
		Code:         code,
		DiscountType: in.DiscountType,
		Value:        in.Value,
		EventID:      in.EventID,
		MaxUses:      in.MaxUses,
		MinPurchase:  in.MinPurchase,
		ValidFrom:    validFrom,
		ValidUntil:   in.ValidUntil,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertCoupon(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Catalog) ListCoupons(ctx context.Context, organizerID primitive.ObjectID) ([]collections.Coupon, error) {
	return s.store.ListCouponsByOrganizer(ctx, organizerID)
}
