package domain

import "time"

// GenerationType enumerates how a history entry was produced.
type GenerationType string

const (
	GenerationTypeGenerate GenerationType = "generate"
	GenerationTypeEdit     GenerationType = "edit"
	GenerationTypeInpaint  GenerationType = "inpaint"
	GenerationTypeUpscale  GenerationType = "upscale"
)

// HistoryEntry records one generated image. Entries are immutable once
// written except for the collection assignment.
type HistoryEntry struct {
	ID           string         `json:"id"`
	Prompt       string         `json:"prompt"`
	Type         GenerationType `json:"type"`
	Provider     string         `json:"provider"`
	Model        string         `json:"model,omitempty"`
	AspectRatio  string         `json:"aspectRatio,omitempty"`
	ImageURL     string         `json:"imageUrl"`
	ThumbURL     string         `json:"thumbUrl,omitempty"`
	Cost         float64        `json:"cost"`
	VariantGroup *string        `json:"variantGroup"`
	CollectionID *string        `json:"collectionId,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Type         GenerationType
	Provider     string
	Search       string
	CollectionID string
	Page         int
	Limit        int
}

// Collection groups history entries.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ItemCount   int       `json:"itemCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProviderStat aggregates history rows for one provider.
type ProviderStat struct {
	Provider string  `json:"provider"`
	Count    int     `json:"count"`
	Cost     float64 `json:"cost"`
}

// TypeStat aggregates history rows for one generation type.
type TypeStat struct {
	Type  GenerationType `json:"type"`
	Count int            `json:"count"`
}

// DailyCost aggregates spend for one calendar day.
type DailyCost struct {
	Date  string  `json:"date"`
	Cost  float64 `json:"cost"`
	Count int     `json:"count"`
}

// Stats summarizes generation usage.
type Stats struct {
	TotalGenerations int            `json:"totalGenerations"`
	TotalCost        float64        `json:"totalCost"`
	ByProvider       []ProviderStat `json:"byProvider"`
	ByType           []TypeStat     `json:"byType"`
	RecentCosts      []DailyCost    `json:"recentCosts"`
}
