package blueprint

import "github.com/aretw0/storewizard/pkg/domain"

// Built-in blueprint kinds.
const (
	KindDigitalProduct = "digital_product"
	KindService        = "service"
)

// Payload builder names used by the built-in plans.
const (
	BuilderPrimary        = "primary"
	BuilderPreviewVariant = "preview_variant"
	BuilderAvailability   = "availability"
)

func bound(f float64) *float64 { return &f }

func basicsStep(id int, nameLabel string) domain.StepDefinition {
	return domain.StepDefinition{
		ID: id, Order: id, Name: "basics", Title: "Basics",
		Fields: []domain.FieldRule{
			{Key: "name", Label: nameLabel, Required: true, MinLength: 3, MaxLength: 120},
			{Key: "slug", Label: "URL slug", Required: true, Format: domain.FormatSlug, MaxLength: 80},
			{Key: "description", Label: "Description", MaxLength: 5000},
		},
		RemoteChecks: []domain.RemoteCheck{{Field: "slug", Scope: domain.ScopeStore}},
	}
}

func pricingStep(id int) domain.StepDefinition {
	return domain.StepDefinition{
		ID: id, Order: id, Name: "pricing", Title: "Pricing",
		Fields: []domain.FieldRule{
			{Key: "price", Label: "Price", Required: true, Min: bound(0)},
			{Key: "currency", Label: "Currency", Required: true, Format: domain.FormatCurrency},
			{Key: "compare_at_price", Label: "Compare-at price", Min: bound(0)},
		},
	}
}

func affiliateStep(id int) domain.StepDefinition {
	return domain.StepDefinition{
		ID: id, Order: id, Name: "affiliate", Title: "Affiliate program", Optional: true, EnabledBy: "affiliate.enabled",
		Fields: []domain.FieldRule{
			{Key: "affiliate.commission_rate", Label: "Commission rate", Required: true, Min: bound(1), Max: bound(90)},
			{Key: "affiliate.cookie_days", Label: "Cookie duration", Min: bound(1), Max: bound(365)},
		},
	}
}

// DigitalProduct is the blueprint for downloadable products.
func DigitalProduct() Blueprint {
	return Blueprint{
		Kind:             KindDigitalProduct,
		Title:            "Digital product",
		IdentifyingField: "name",
		RichTextFields:   []string{"description"},
		Steps: []domain.StepDefinition{
			basicsStep(1, "Product name"),
			pricingStep(2),
			{
				ID: 3, Order: 3, Name: "content", Title: "Content",
				Fields: []domain.FieldRule{
					{Key: "files", Label: "Files", Required: true, MinItems: 1},
					{Key: "delivery_url", Label: "Delivery URL", Format: domain.FormatURL},
				},
			},
			{
				ID: 4, Order: 4, Name: "license", Title: "License", Optional: true, EnabledBy: "license.enabled",
				Fields: []domain.FieldRule{
					{Key: "license.type", Label: "License type", Required: true, OneOf: []string{"personal", "commercial", "extended"}},
					{Key: "license.max_activations", Label: "Activations", Min: bound(1)},
				},
			},
			affiliateStep(5),
			{
				ID: 6, Order: 6, Name: "seo", Title: "Search appearance", Optional: true,
				Fields: []domain.FieldRule{
					{Key: "seo.title", Label: "SEO title", MaxLength: 60},
					{Key: "seo.description", Label: "SEO description", MaxLength: 160},
					{Key: "seo.canonical_url", Label: "Canonical URL", Format: domain.FormatURL},
				},
			},
			{
				ID: 7, Order: 7, Name: "review", Title: "Review",
				Fields: []domain.FieldRule{
					{Key: "version", Label: "Version", MaxLength: 32},
				},
				RemoteChecks: []domain.RemoteCheck{{Field: "version", Scope: domain.ScopePrimary}},
			},
		},
		Defaults: map[string]any{
			"currency":         "USD",
			"files":            []any{},
			"generate_preview": false,
		},
		Plan: []domain.SubmissionStep{
			{Name: "primary", Fatal: true, Builder: BuilderPrimary},
			{Name: "license", Fatal: true, DependsOn: "primary", Kind: "license", Source: "license", EnabledBy: "license.enabled"},
			{Name: "affiliate", DependsOn: "primary", Kind: "affiliate", Source: "affiliate", EnabledBy: "affiliate.enabled"},
			{Name: "seo", DependsOn: "primary", Kind: "seo", Source: "seo"},
			{Name: "preview_variant", DependsOn: "primary", Kind: "variant", Builder: BuilderPreviewVariant, EnabledBy: "generate_preview"},
		},
	}
}

// Service is the blueprint for bookable services.
func Service() Blueprint {
	return Blueprint{
		Kind:             KindService,
		Title:            "Service",
		IdentifyingField: "name",
		RichTextFields:   []string{"description"},
		Steps: []domain.StepDefinition{
			basicsStep(1, "Service name"),
			pricingStep(2),
			{
				ID: 3, Order: 3, Name: "availability", Title: "Availability",
				Fields: []domain.FieldRule{
					{Key: "duration_minutes", Label: "Duration", Required: true, Min: bound(5), Max: bound(1440)},
					{Key: "availability.timezone", Label: "Time zone", Required: true},
					{Key: "availability.slots", Label: "Weekly hours", Required: true, Format: domain.FormatSchedule},
				},
			},
			{
				ID: 4, Order: 4, Name: "booking", Title: "Booking rules", Optional: true,
				Fields: []domain.FieldRule{
					{Key: "booking.max_per_day", Label: "Bookings per day", Min: bound(1)},
					{Key: "booking.buffer_minutes", Label: "Buffer", Min: bound(0), Max: bound(240)},
					{Key: "booking.contact_email", Label: "Contact email", Format: domain.FormatEmail},
				},
			},
			affiliateStep(5),
			{ID: 6, Order: 6, Name: "review", Title: "Review"},
		},
		Defaults: map[string]any{
			"currency":         "USD",
			"duration_minutes": 60,
			"availability":     map[string]any{"timezone": "UTC"},
		},
		Plan: []domain.SubmissionStep{
			{Name: "primary", Fatal: true, Builder: BuilderPrimary},
			{Name: "availability", Fatal: true, DependsOn: "primary", Kind: "availability", Source: "availability", Builder: BuilderAvailability},
			{Name: "booking", DependsOn: "primary", Kind: "booking", Source: "booking"},
			{Name: "affiliate", DependsOn: "primary", Kind: "affiliate", Source: "affiliate", EnabledBy: "affiliate.enabled"},
		},
	}
}
