package email

import "time"

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// OrderConfirmationEmail is sent once an order is recorded.
type OrderConfirmationEmail struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	OrderDate     time.Time
	Items         []OrderItem
	TotalCents    int64
	ShippingAddr  Address
}

func (e OrderConfirmationEmail) Subject() string {
	return "Order Confirmation - " + e.OrderNumber
}

func (e OrderConfirmationEmail) TemplateName() string {
	return "order_confirmation.html"
}

// OrderStatusEmail is sent when an order moves along its lifecycle.
type OrderStatusEmail struct {
	OrderNumber    string
	CustomerName   string
	CustomerEmail  string
	Status         string
	PreviousStatus string
	Items          []OrderItem
	TotalCents     int64
}

func (e OrderStatusEmail) Subject() string {
	switch e.Status {
	case "shipped":
		return "Your Order Has Shipped - " + e.OrderNumber
	case "delivered":
		return "Your Order Was Delivered - " + e.OrderNumber
	case "cancelled":
		return "Your Order Was Cancelled - " + e.OrderNumber
	}
	return "Order Update - " + e.OrderNumber
}

func (e OrderStatusEmail) TemplateName() string {
	return "order_status.html"
}

// Supporting types

// OrderItem represents a line item in an order
type OrderItem struct {
	ProductName string
	VariantName string // e.g. "Black / M"
	Quantity    int
	PriceCents  int64
	TotalCents  int64
}

// Address represents a shipping address
type Address struct {
	Name       string
	Line1      string
	Line2      string // Optional
	City       string
	State      string
	PostalCode string
	Country    string
}
