package models

// Product is a catalogue template for deal and invoice items. Values are
// copied onto documents when used, so later price changes never rewrite
// issued paperwork.
type Product struct {
	BaseModel

	Name        string `gorm:"not null;index;size:255" json:"name"`
	Code        string `gorm:"size:50;index" json:"code"`
	EAN         string `gorm:"size:20" json:"ean"`
	Description string `gorm:"size:2000" json:"description"`

	Unit string `gorm:"size:20;default:pcs" json:"unit"`

	Price    float64 `gorm:"not null;default:0" json:"price"`
	Currency string  `gorm:"size:3;default:CZK" json:"currency"`
	TaxRate  float64 `gorm:"default:21" json:"tax_rate"`
	Cost     float64 `gorm:"default:0" json:"cost"`

	Category string `gorm:"size:100;index" json:"category"`

	IsActive   bool `gorm:"default:true;index" json:"is_active"`
	IsFeatured bool `gorm:"default:false" json:"is_featured"`

	Notes string `gorm:"size:2000" json:"notes"`
}

// DocumentItem is the snapshot a product leaves on a deal or invoice line.
type DocumentItem struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Code        string  `json:"code"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
}

// AsItem snapshots the product onto a document line.
func (p Product) AsItem(quantity float64) DocumentItem {
	if quantity <= 0 {
		quantity = 1
	}
	return DocumentItem{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Code:        p.Code,
		Quantity:    quantity,
		Unit:        p.Unit,
		UnitPrice:   p.Price,
		TaxRate:     p.TaxRate,
	}
}
