package pricing

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/devLudociel/MiEcommerce-sub000/internal/model"
)

// resolveItem turns one submitted cart line into a priced line. The unit price
// starts from the variant price (variants present), else the sale price when it
// undercuts the base, else the base price; customization modifiers are added on
// top and a customization price override replaces the whole unit price. A
// quantity-override customization field redefines the line quantity before any
// bundle pooling happens (see DESIGN.md).
func resolveItem(p *model.Product, in QuoteItem) (*QuotedItem, error) {
	if !p.Active {
		return nil, errf(CodeProductInactive, "product %q is not available", p.Name)
	}
	if in.Quantity <= 0 {
		return nil, errf(CodeInvalidQuantity, "quantity must be positive")
	}

	var unit decimal.Decimal
	switch {
	case len(p.Variants) > 0:
		if in.VariantID == "" {
			return nil, errf(CodeVariantRequired, "product %q requires a variant selection", p.Name)
		}
		v := p.Variant(in.VariantID)
		if v == nil {
			return nil, errf(CodeVariantRequired, "unknown variant for product %q", p.Name)
		}
		unit = v.Price
	case p.OnSale && p.SalePrice != nil && p.SalePrice.LessThan(p.Price):
		unit = *p.SalePrice
	default:
		unit = p.Price
	}

	quantity := in.Quantity
	var override *decimal.Decimal
	selected := make([]model.SelectedCustomization, 0, len(p.Customizations))

	// Only schema keys are read from the client map; stray keys are dropped.
	for _, field := range p.Customizations {
		raw, ok := in.Customizations[field.Key]
		if !ok || raw == "" {
			if field.Required {
				return nil, errf(CodeCustomizationMissing, "missing required option %q for %q", field.Key, p.Name)
			}
			continue
		}

		switch field.Kind {
		case model.CustomizationDropdown, model.CustomizationRadio, model.CustomizationColor:
			opt := findOption(field.Options, raw)
			if opt == nil {
				return nil, errf(CodeCustomizationInvalid, "invalid value for option %q of %q", field.Key, p.Name)
			}
			unit = round2(unit.Add(opt.PriceModifier))
			if opt.PriceOverride != nil {
				override = opt.PriceOverride
			}
		case model.CustomizationCheckbox:
			checked, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, errf(CodeCustomizationInvalid, "invalid value for option %q of %q", field.Key, p.Name)
			}
			if checked {
				unit = round2(unit.Add(field.PriceModifier))
			}
		case model.CustomizationText, model.CustomizationDimensions:
			unit = round2(unit.Add(field.PriceModifier))
		default:
			return nil, errf(CodeCustomizationInvalid, "unsupported option kind %q for %q", field.Kind, p.Name)
		}

		if field.IsQuantity {
			q, err := strconv.Atoi(raw)
			if err != nil || q <= 0 {
				return nil, errf(CodeCustomizationInvalid, "invalid quantity value for option %q of %q", field.Key, p.Name)
			}
			quantity = q
		}

		selected = append(selected, model.SelectedCustomization{
			Key:   field.Key,
			Label: field.Label,
			Value: raw,
		})
	}

	if override != nil {
		unit = *override
	}
	unit = round2(unit)

	return &QuotedItem{
		ProductID:      p.ID,
		VariantID:      in.VariantID,
		Name:           p.Name,
		Quantity:       quantity,
		UnitPrice:      unit,
		LineTotal:      round2(unit.Mul(decimal.NewFromInt(int64(quantity)))),
		Digital:        p.Digital,
		Customizations: selected,
		category:       p.Category,
		tags:           p.Tags,
	}, nil
}

func findOption(opts []model.CustomizationOption, value string) *model.CustomizationOption {
	for i := range opts {
		if opts[i].Value == value {
			return &opts[i]
		}
	}
	return nil
}
