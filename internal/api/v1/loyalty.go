package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/reservo/internal/domain"
)

type DiscountDTO struct {
	Kind   string `json:"kind" enum:"INDIVIDUAL,PACKAGE"`
	Amount string `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type LoyaltyProfileDTO struct {
	ClientID                uuid.UUID     `json:"clientId"`
	IndividualServicesCount int           `json:"individualServicesCount"`
	PackagesCount           int           `json:"packagesCount"`
	TotalSpent              string        `json:"totalSpent"`
	AvailableDiscounts      []DiscountDTO `json:"availableDiscounts"`
	LastVisit               *time.Time    `json:"lastVisit,omitempty"`
}

func loyaltyProfileDTO(p *domain.LoyaltyProfile) LoyaltyProfileDTO {
	discounts := make([]DiscountDTO, 0, len(p.AvailableDiscounts))
	for _, d := range p.AvailableDiscounts {
		discounts = append(discounts, discountDTO(&d))
	}
	return LoyaltyProfileDTO{
		ClientID:                p.ClientID,
		IndividualServicesCount: p.IndividualServicesCount,
		PackagesCount:           p.PackagesCount,
		TotalSpent:              p.TotalSpent.StringFixed(2),
		AvailableDiscounts:      discounts,
		LastVisit:               p.LastVisit,
	}
}

func discountDTO(d *domain.Discount) DiscountDTO {
	return DiscountDTO{Kind: string(d.Kind), Amount: d.Amount.StringFixed(2), Reason: d.Reason}
}

type GetLoyaltyInput struct {
	ClientID uuid.UUID `path:"clientId" doc:"Client ID"`
}

type GetLoyaltyOutput struct {
	Body LoyaltyProfileDTO
}

type ConsumeDiscountInput struct {
	ClientID uuid.UUID `path:"clientId" doc:"Client ID"`
	Body     struct {
		Kind string `json:"kind,omitempty" doc:"INDIVIDUAL or PACKAGE"`
	}
}

type ConsumeDiscountOutput struct {
	Body DiscountDTO
}

func RegisterLoyaltyRoutes(api huma.API, loyalty domain.LoyaltyRepository) {
	huma.Register(api, huma.Operation{
		OperationID: "get-loyalty-profile",
		Method:      http.MethodGet,
		Path:        "/loyalty/{clientId}",
		Summary:     "Get a client's loyalty counters and discounts",
		Tags:        []string{"Loyalty"},
	}, func(ctx context.Context, input *GetLoyaltyInput) (*GetLoyaltyOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		p, err := loyalty.Get(ctx, tenantID, input.ClientID)
		if err != nil {
			return nil, toHTTPError("get-loyalty-profile", err)
		}
		return &GetLoyaltyOutput{Body: loyaltyProfileDTO(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "consume-discount",
		Method:      http.MethodPost,
		Path:        "/loyalty/{clientId}/discounts/consume",
		Summary:     "Use a client's discount and reset the matching counter",
		Tags:        []string{"Loyalty"},
	}, func(ctx context.Context, input *ConsumeDiscountInput) (*ConsumeDiscountOutput, error) {
		tenantID, err := staffTenant(ctx)
		if err != nil {
			return nil, err
		}
		kind := domain.ServiceKind(strings.ToUpper(strings.TrimSpace(input.Body.Kind)))
		if kind != domain.ServiceKindIndividual && kind != domain.ServiceKindPackage {
			return nil, toHTTPError("consume-discount", domain.NewValidationError("kind", "must be INDIVIDUAL or PACKAGE"))
		}

		d, err := loyalty.ConsumeDiscount(ctx, tenantID, input.ClientID, kind)
		if err != nil {
			return nil, toHTTPError("consume-discount", err)
		}
		return &ConsumeDiscountOutput{Body: discountDTO(d)}, nil
	})
}
