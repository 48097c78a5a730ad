package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	VariantDigital = "DIGITAL"
	VariantPrint   = "PRINT"
)

// StringList stores an ordered list of URLs as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

type User struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email         string `gorm:"uniqueIndex;not null"     json:"email"`
	Name          string `gorm:"not null"                 json:"name"`
	PasswordHash  string `gorm:"not null"                 json:"-"`
	Role          string `gorm:"not null"                 json:"role"`
	DownloadCount uint   `gorm:"default:0"                json:"download_count"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
}

type Product struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"not null"                 json:"title"`
	Description string     `gorm:"not null"                 json:"description"`
	Price       float64    `gorm:"not null"                 json:"price"`
	CategoryID  uint       `gorm:"index;not null"           json:"category_id"`
	PublicID    string     `json:"public_id"`
	Thumbnails  StringList `gorm:"type:text"                json:"thumbnails"`
	Formats     StringList `gorm:"type:text"                json:"formats"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProductVariant is a purchasable configuration minted on demand by cart
// operations. Size, material and frame are only meaningful for PRINT kind.
type ProductVariant struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint   `gorm:"index;not null"           json:"product_id"`
	Kind      string `gorm:"not null"                 json:"kind"`
	Format    string `json:"format"`
	Size      string `json:"size,omitempty"`
	Material  string `json:"material,omitempty"`
	Frame     string `json:"frame,omitempty"`
}

// Cart is one-per-user; the unique index makes concurrent find-or-create
// surface as a constraint error instead of a second row.
type Cart struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null"     json:"user_id"`
}

type CartItem struct {
	ID               uint    `gorm:"primaryKey;autoIncrement"   json:"id"`
	CartID           uint    `gorm:"index;not null"             json:"cart_id"`
	ProductID        uint    `gorm:"not null"                   json:"product_id"`
	DigitalVariantID *uint   `json:"digital_variant_id"`
	PrintVariantID   *uint   `json:"print_variant_id"`
	Price            float64 `gorm:"not null"                   json:"price"`
	Quantity         uint    `gorm:"default:1;check:quantity>0" json:"quantity"`

	Product        Product         `gorm:"foreignKey:ProductID"        json:"product"`
	DigitalVariant *ProductVariant `gorm:"foreignKey:DigitalVariantID" json:"digital_variant,omitempty"`
	PrintVariant   *ProductVariant `gorm:"foreignKey:PrintVariantID"   json:"print_variant,omitempty"`
}

// Order rows are created exactly once per checkout session; the unique
// index on StripeSessionID is what makes webhook replay safe.
type Order struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"index;not null"           json:"user_id"`
	Total           float64   `gorm:"not null"                 json:"total"`
	Status          string    `gorm:"not null"                 json:"status"`
	StripeSessionID string    `gorm:"uniqueIndex;not null"     json:"stripe_session_id"`
	PlacedAt        time.Time `json:"placed_at"`
}

type OrderItem struct {
	ID               uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          uint    `gorm:"index;not null"           json:"order_id"`
	ProductID        uint    `gorm:"not null"                 json:"product_id"`
	Kind             string  `gorm:"not null"                 json:"kind"`
	Price            float64 `gorm:"not null"                 json:"price"`
	Quantity         uint    `gorm:"default:1"                json:"quantity"`
	DigitalVariantID *uint   `json:"digital_variant_id"`
	PrintVariantID   *uint   `json:"print_variant_id"`

	Order   Order   `gorm:"foreignKey:OrderID"   json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product"`
}

type Favorite struct {
	ID        uint `gorm:"primaryKey;autoIncrement"                  json:"id"`
	UserID    uint `gorm:"uniqueIndex:idx_fav_user_product;not null" json:"user_id"`
	ProductID uint `gorm:"uniqueIndex:idx_fav_user_product;not null" json:"product_id"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"index;not null"           json:"product_id"`
	UserID    uint      `gorm:"not null"                 json:"user_id"`
	Rating    int       `gorm:"not null"                 json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
