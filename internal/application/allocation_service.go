package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// Scoring weights. Preference dominates tier, tier dominates raw ATP, so a
// preferred warehouse wins even against a much fuller one.
const (
	preferredWarehouseBonus = 1000
	tierBonusPlatinum       = 500
	tierBonusGold           = 250
	tierBonusSilver         = 100
)

// AllocationService splits a requested quantity across warehouses. It holds
// no state of its own: candidates are scored from a fresh ATP snapshot and
// every per-warehouse grant goes through ReservationService.Reserve, whose
// commit-time check is what makes concurrent allocation safe.
type AllocationService struct {
	atp          *AtpService
	reservations *ReservationService
	log          *zap.Logger
}

func NewAllocationService(
	atp *AtpService,
	reservations *ReservationService,
	log *zap.Logger,
) *AllocationService {
	return &AllocationService{
		atp:          atp,
		reservations: reservations,
		log:          log,
	}
}

type scoredCandidate struct {
	atp   domain.WarehouseAtp
	score int
}

func tierBonus(tier domain.CustomerTier) int {
	switch tier {
	case domain.TierPlatinum:
		return tierBonusPlatinum
	case domain.TierGold:
		return tierBonusGold
	case domain.TierSilver:
		return tierBonusSilver
	default:
		return 0
	}
}

// scoreCandidate ranks a warehouse for one request: more available stock
// first (less fragmentation), preferred warehouses ahead of the rest, and a
// tier bonus so contended capacity tends to go to higher tiers.
func scoreCandidate(
	atp domain.WarehouseAtp,
	preferred map[uuid.UUID]bool,
	tier domain.CustomerTier,
) int {
	score := atp.AtpQuantity
	if preferred[atp.WarehouseID] {
		score += preferredWarehouseBonus
	}
	score += tierBonus(tier)
	return score
}

// AllocateInventory implements the placement policy: snapshot, score, sort,
// then greedily reserve from the best candidates. Per-warehouse reservations
// are independent; a later failure does not roll back earlier grants.
func (s *AllocationService) AllocateInventory(
	ctx context.Context,
	req domain.AllocationRequest,
) (*domain.AllocationResult, error) {
	if req.Quantity < 0 {
		return nil, fmt.Errorf("allocation quantity must not be negative, got %d", req.Quantity)
	}

	result := &domain.AllocationResult{
		TitleID:           req.TitleID,
		RequestedQuantity: req.Quantity,
		Allocations:       []domain.WarehouseAllocation{},
	}

	// Probing with zero quantity is a valid way to ask "is this callable".
	if req.Quantity == 0 {
		result.Success = true
		return result, nil
	}

	multi, err := s.atp.CalculateMultiWarehouseAtp(ctx, req.TitleID)
	if err != nil {
		return nil, err
	}

	preferred := make(map[uuid.UUID]bool, len(req.PreferredWarehouseIDs))
	for _, id := range req.PreferredWarehouseIDs {
		preferred[id] = true
	}

	candidates := make([]scoredCandidate, 0, len(multi.WarehouseAtps))
	for _, wa := range multi.WarehouseAtps {
		if wa.AtpQuantity <= 0 {
			continue
		}
		candidates = append(candidates, scoredCandidate{
			atp:   wa,
			score: scoreCandidate(wa, preferred, req.CustomerTier),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	remaining := req.Quantity
	for _, cand := range candidates {
		if remaining == 0 {
			break
		}
		if req.MaxWarehouses > 0 && len(result.Allocations) >= req.MaxWarehouses {
			break
		}

		take := remaining
		if cand.atp.AtpQuantity < take {
			take = cand.atp.AtpQuantity
		}

		resv, err := s.reservations.Reserve(ctx, ReserveCommand{
			TitleID:     req.TitleID,
			WarehouseID: cand.atp.WarehouseID,
			Quantity:    take,
			OrderID:     req.OrderID,
			CustomerID:  req.CustomerID,
			Priority:    req.CustomerTier.Priority(),
			ExpiresAt:   req.ExpiresAtUtc,
		})
		if err != nil {
			return nil, err
		}
		if !resv.Success {
			// Raced by another caller since the snapshot: skip this
			// warehouse, the rest may still have capacity.
			s.log.Debug("candidate lost its atp during planning",
				zap.String("warehouseId", cand.atp.WarehouseID.String()),
				zap.Int("wanted", take))
			continue
		}

		rec, err := s.atp.records.Get(ctx, req.TitleID, cand.atp.WarehouseID)
		if err != nil {
			return nil, err
		}
		alloc := domain.WarehouseAllocation{
			WarehouseID:   cand.atp.WarehouseID,
			WarehouseName: cand.atp.WarehouseName,
			Quantity:      take,
			ReservationID: resv.Reservation.ID,
		}
		if rec != nil {
			alloc.UnitCost = rec.AverageCost
		}
		result.Allocations = append(result.Allocations, alloc)
		result.TotalAllocated += take
		remaining -= take
	}

	result.UnallocatedQuantity = remaining
	result.Success = remaining == 0

	if !result.Success {
		result.Recommendations = s.recommendations(req, result, multi)
		s.log.Info("allocation fell short",
			zap.String("titleId", req.TitleID.String()),
			zap.Int("requested", req.Quantity),
			zap.Int("allocated", result.TotalAllocated))
	}
	return result, nil
}

func (s *AllocationService) recommendations(
	req domain.AllocationRequest,
	result *domain.AllocationResult,
	multi *domain.MultiWarehouseAtp,
) []string {
	recs := []string{}
	leftBehind := multi.TotalAtp - result.TotalAllocated
	if req.MaxWarehouses > 0 && leftBehind > 0 {
		recs = append(recs, fmt.Sprintf(
			"Splitting across more than %d warehouses could cover %d additional units",
			req.MaxWarehouses, min(leftBehind, result.UnallocatedQuantity)))
	}
	if multi.TotalAtp < req.Quantity {
		recs = append(recs, fmt.Sprintf(
			"Total ATP across all warehouses is %d; consider a reprint or purchase order for the shortfall of %d",
			multi.TotalAtp, req.Quantity-multi.TotalAtp))
	}
	recs = append(recs, "Check back after the next stock receipt, or retry with a smaller quantity")
	return recs
}
