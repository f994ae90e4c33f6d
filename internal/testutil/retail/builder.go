// Package retail builds deterministic synthetic retail transactions for tests.
//
// Example usage:
//
//	txns := retail.NewBuilder().
//		WithCustomers(12, retail.Profiles...).
//		Build()
package retail

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/shopper-spectrum/internal/model"
)

// Profile describes how a synthetic customer shops.
type Profile struct {
	Name      string
	UnitPrice float64
	Visits    int
	DaysAgo   int
}

// Shopping profiles with clearly separated RFM values.
var (
	ProfileLoyal      = Profile{Name: "loyal", Visits: 12, UnitPrice: 40, DaysAgo: 1}
	ProfileRegular    = Profile{Name: "regular", Visits: 6, UnitPrice: 8, DaysAgo: 10}
	ProfileOccasional = Profile{Name: "occasional", Visits: 2, UnitPrice: 3, DaysAgo: 60}
	ProfileLapsed     = Profile{Name: "lapsed", Visits: 1, UnitPrice: 2.5, DaysAgo: 300}

	// Profiles lists every profile from most to least valuable.
	Profiles = []Profile{ProfileLoyal, ProfileRegular, ProfileOccasional, ProfileLapsed}
)

// DefaultProducts is the catalogue used unless WithProducts is called.
var DefaultProducts = []string{
	"WHITE HANGING HEART T-LIGHT HOLDER",
	"REGENCY CAKESTAND 3 TIER",
	"JUMBO BAG RED RETROSPOT",
	"PARTY BUNTING",
	"LUNCH BAG RED RETROSPOT",
}

// DefaultEnd is the default date of the most recent possible purchase.
var DefaultEnd = time.Date(2011, 12, 9, 12, 0, 0, 0, time.UTC)

// FirstCustomerID is the id given to the first customer added.
const FirstCustomerID = 13000

type customer struct {
	id      string
	profile Profile
}

// Builder provides a fluent interface for constructing transactions.
type Builder struct {
	end       time.Time
	products  []string
	customers []customer
}

// NewBuilder returns a builder with the default catalogue and end date.
func NewBuilder() *Builder {
	return &Builder{end: DefaultEnd, products: DefaultProducts}
}

// WithEnd sets the date the DaysAgo of every profile counts back from.
func (b *Builder) WithEnd(end time.Time) *Builder {
	b.end = end
	return b
}

// WithProducts replaces the catalogue.
func (b *Builder) WithProducts(names ...string) *Builder {
	b.products = names
	return b
}

// WithCustomer adds one customer.
func (b *Builder) WithCustomer(id string, profile Profile) *Builder {
	b.customers = append(b.customers, customer{id: id, profile: profile})
	return b
}

// WithCustomers adds n customers with sequential ids, cycling through profiles.
func (b *Builder) WithCustomers(n int, profiles ...Profile) *Builder {
	if len(profiles) == 0 {
		profiles = Profiles
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%d", FirstCustomerID+len(b.customers))
		b.WithCustomer(id, profiles[i%len(profiles)])
	}
	return b
}

// Build returns two lines per visit for every customer. Later customers of a
// profile purchased one day further back than earlier ones; visits are three
// days apart.
func (b *Builder) Build() []model.Transaction {
	var txns []model.Transaction
	invoice := 536365

	for idx, c := range b.customers {
		for v := 0; v < c.profile.Visits; v++ {
			date := b.end.AddDate(0, 0, -(c.profile.DaysAgo + idx + v*3))
			for line := 0; line < 2; line++ {
				txn := model.Transaction{
					CustomerID:  c.id,
					InvoiceID:   fmt.Sprintf("%d", invoice),
					InvoiceDate: date,
					StockCode:   fmt.Sprintf("8512%d", (idx+line+v)%len(b.products)),
					Description: b.products[(idx+line+v)%len(b.products)],
					Country:     "United Kingdom",
					Quantity:    1 + (idx+v+line)%5,
					UnitPrice:   c.profile.UnitPrice,
				}
				txn.Hash = txn.GenerateHash()
				txns = append(txns, txn)
			}
			invoice++
		}
	}
	return txns
}

// ExportHeader is the header row of the raw export format.
const ExportHeader = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country"

// CSV renders the transactions the way the raw export does: US dates and
// float customer ids.
func (b *Builder) CSV() string {
	var sb strings.Builder
	sb.WriteString(ExportHeader + "\n")
	for _, txn := range b.Build() {
		fmt.Fprintf(&sb, "%s,%s,%s,%d,%s,%.2f,%s.0,%s\n",
			txn.InvoiceID,
			txn.StockCode,
			txn.Description,
			txn.Quantity,
			txn.InvoiceDate.Format("1/2/2006 15:04"),
			txn.UnitPrice,
			txn.CustomerID,
			txn.Country)
	}
	return sb.String()
}
