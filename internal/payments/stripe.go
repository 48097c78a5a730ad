package payments

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/price"
	"github.com/stripe/stripe-go/v80/product"
)

// VariantSnapshot mirrors the variant the client had in its cart when it
// started checkout; it travels into Stripe metadata so the purchase can be
// reconstructed without re-reading the cart.
type VariantSnapshot struct {
	ID       uint   `json:"id"`
	Format   string `json:"format"`
	Size     string `json:"size,omitempty"`
	Material string `json:"material,omitempty"`
	Frame    string `json:"frame,omitempty"`
}

type ProductSnapshot struct {
	ID       uint             `json:"id"`
	Title    string           `json:"title"`
	Price    float64          `json:"price"`
	ImageURL string           `json:"image_url"`
	Digital  *VariantSnapshot `json:"digital,omitempty"`
	Print    *VariantSnapshot `json:"print,omitempty"`
}

type CheckoutItem struct {
	Quantity int64           `json:"quantity"`
	Product  ProductSnapshot `json:"product"`
}

type SessionLine struct {
	PriceID  string
	Quantity int64
}

// Provider is the slice of the payment processor the handlers need; the
// tests substitute a fake.
type Provider interface {
	RegisterLineItem(ctx context.Context, customerID string, item CheckoutItem) (SessionLine, error)
	CreateCheckoutSession(ctx context.Context, customerID string, lines []SessionLine) (string, error)
}

var checkoutAllowedCountries = []string{"US", "CA", "GB", "FR"}

type Client struct {
	ClientURL string
}

func NewClient(secretKey, clientURL string) *Client {
	stripe.Key = secretKey
	return &Client{ClientURL: clientURL}
}

// RegisterLineItem creates a fresh Stripe product and price for one cart
// entry. Nothing is cached across checkouts; unused registrations are inert.
func (c *Client) RegisterLineItem(ctx context.Context, customerID string, item CheckoutItem) (SessionLine, error) {
	p := item.Product

	productParams := &stripe.ProductParams{
		Name:   stripe.String(p.Title),
		Images: stripe.StringSlice([]string{p.ImageURL}),
	}
	productParams.Context = ctx
	productParams.AddMetadata("productId", fmt.Sprint(p.ID))
	productParams.AddMetadata("customerId", customerID)
	if p.Digital != nil {
		productParams.AddMetadata("digitalVariantId", fmt.Sprint(p.Digital.ID))
		productParams.AddMetadata("digitalFormat", p.Digital.Format)
	}
	if p.Print != nil {
		productParams.AddMetadata("printVariantId", fmt.Sprint(p.Print.ID))
		productParams.AddMetadata("printFormat", p.Print.Format)
		if p.Print.Size != "" {
			productParams.AddMetadata("printSize", p.Print.Size)
		}
		if p.Print.Material != "" {
			productParams.AddMetadata("printMaterial", p.Print.Material)
		}
		if p.Print.Frame != "" {
			productParams.AddMetadata("printFrame", p.Print.Frame)
		}
	}

	remoteProduct, err := product.New(productParams)
	if err != nil {
		return SessionLine{}, fmt.Errorf("stripe product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		UnitAmount: stripe.Int64(int64(math.Round(p.Price * 100))),
		Currency:   stripe.String(string(stripe.CurrencyUSD)),
		Product:    stripe.String(remoteProduct.ID),
	}
	priceParams.Context = ctx

	remotePrice, err := price.New(priceParams)
	if err != nil {
		return SessionLine{}, fmt.Errorf("stripe price: %w", err)
	}

	return SessionLine{PriceID: remotePrice.ID, Quantity: item.Quantity}, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, customerID string, lines []SessionLine) (string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines))
	for _, line := range lines {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(line.PriceID),
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(c.ClientURL + "/cart/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(c.ClientURL + "/cart"),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(checkoutAllowedCountries),
		},
		ConsentCollection: &stripe.CheckoutSessionConsentCollectionParams{
			TermsOfService: stripe.String("required"),
		},
		AutomaticTax: &stripe.CheckoutSessionAutomaticTaxParams{
			Enabled: stripe.Bool(true),
		},
		LineItems: lineItems,
	}
	params.Context = ctx
	// The webhook relies on this; line-item metadata does not reliably
	// surface on the completed event.
	params.AddMetadata("customerId", customerID)

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout session: %w", err)
	}
	return sess.ID, nil
}
