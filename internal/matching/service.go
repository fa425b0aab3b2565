package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tradeinz-backend/internal/geo"
	"github.com/angelmondragon/tradeinz-backend/internal/orders"
	"github.com/angelmondragon/tradeinz-backend/internal/partners"
	"github.com/angelmondragon/tradeinz-backend/pkg/config"
	"github.com/angelmondragon/tradeinz-backend/pkg/logger"
	"github.com/angelmondragon/tradeinz-backend/pkg/metrics"
	"github.com/angelmondragon/tradeinz-backend/pkg/pagination"
	"github.com/angelmondragon/tradeinz-backend/pkg/types"
)

// ClaimableOrder is one row of the partner's claimable feed, sorted by
// live distance from the partner's current location.
type ClaimableOrder struct {
	OrderID           uuid.UUID       `json:"orderId"`
	OrderNumber       string          `json:"orderNumber"`
	Status            string          `json:"status"`
	QuoteAmount       decimal.Decimal `json:"quoteAmount"`
	PickupAddress     string          `json:"pickupAddress"`
	PickupLocation    types.GeoPoint  `json:"pickupLocation"`
	PickupWindowStart time.Time       `json:"pickupWindowStart"`
	PickupWindowEnd   time.Time       `json:"pickupWindowEnd"`
	DistanceMeters    float64         `json:"distanceMeters"`
	DistanceDisplay   string          `json:"distanceDisplay"`
}

// ClaimableList is a page of the feed with the canonical pagination block.
type ClaimableList struct {
	Orders []ClaimableOrder `json:"orders"`
	Meta   pagination.Meta  `json:"meta"`
}

// Service builds the claimable-order feed for partners.
type Service interface {
	ListClaimable(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*ClaimableList, error)
}

type service struct {
	orders   orders.Repository
	partners partners.Repository
	cfg      config.MatchingConfig
	metrics  *metrics.MatchingMetrics
	logg     *logger.Logger
}

func NewService(
	orderRepo orders.Repository,
	partnerRepo partners.Repository,
	cfg config.MatchingConfig,
	matchingMetrics *metrics.MatchingMetrics,
	logg *logger.Logger,
) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if partnerRepo == nil {
		return nil, fmt.Errorf("partner repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		orders:   orderRepo,
		partners: partnerRepo,
		cfg:      cfg,
		metrics:  matchingMetrics,
		logg:     logg,
	}, nil
}

// ListClaimable recomputes distances against the partner's current location
// on every call; nothing here is cached or persisted. Visibility is a
// filter only, so the same order can appear in many partners' feeds.
func (s *service) ListClaimable(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*ClaimableList, error) {
	started := time.Now()

	partner, err := s.partners.FindPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	radius := partner.ServiceRadiusMeters
	if s.cfg.MaxServiceRadiusMeters > 0 && radius > s.cfg.MaxServiceRadiusMeters {
		radius = s.cfg.MaxServiceRadiusMeters
	}

	pool, err := s.orders.ListOpenOrders(ctx)
	if err != nil {
		return nil, err
	}

	feed := make([]ClaimableOrder, 0, len(pool))
	for _, order := range pool {
		distance, err := geo.Distance(partner.Location, order.PickupLocation)
		if err != nil {
			// a malformed row must not poison the whole feed
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(logCtx, "skipping order with invalid pickup location")
			continue
		}
		if distance > radius {
			continue
		}
		feed = append(feed, ClaimableOrder{
			OrderID:           order.ID,
			OrderNumber:       order.OrderNumber,
			Status:            orders.DisplayStatus(order),
			QuoteAmount:       order.QuoteAmount,
			PickupAddress:     order.PickupAddress,
			PickupLocation:    order.PickupLocation,
			PickupWindowStart: order.PickupWindowStart,
			PickupWindowEnd:   order.PickupWindowEnd,
			DistanceMeters:    distance,
			DistanceDisplay:   FormatDistance(distance),
		})
	}

	sort.SliceStable(feed, func(i, j int) bool {
		if feed[i].DistanceMeters != feed[j].DistanceMeters {
			return feed[i].DistanceMeters < feed[j].DistanceMeters
		}
		return feed[i].OrderNumber < feed[j].OrderNumber
	})

	params = pagination.Normalize(params, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	start, end := pagination.Slice(params, len(feed))
	page := feed[start:end]

	s.metrics.ObserveFeedDuration(time.Since(started))

	return &ClaimableList{
		Orders: page,
		Meta:   pagination.BuildMeta(params, int64(len(feed))),
	}, nil
}

// FormatDistance renders a distance for display: meters under a kilometer,
// otherwise kilometers with one decimal.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}
