package domain

// ShippingMethod is how the order reaches the buyer
type ShippingMethod string

const (
	ShippingPickup   ShippingMethod = "pickup"
	ShippingDelivery ShippingMethod = "delivery"
)

// IsValid checks if the shipping method is known
func (m ShippingMethod) IsValid() bool {
	return m == ShippingPickup || m == ShippingDelivery
}

// PaymentMethod is the buyer's chosen payment method
type PaymentMethod string

const (
	PaymentCard        PaymentMethod = "card"
	PaymentMercadoPago PaymentMethod = "mercadopago"
	PaymentCash        PaymentMethod = "cash"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentDigital     PaymentMethod = "digital"
	PaymentCrypto      PaymentMethod = "crypto"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCard, PaymentMercadoPago, PaymentCash, PaymentTransfer, PaymentDigital, PaymentCrypto:
		return true
	default:
		return false
	}
}

// IsGateway reports whether the method hands off to the external payment
// session collaborator. Manual methods produce a pending order instead.
func (m PaymentMethod) IsGateway() bool {
	return m == PaymentMercadoPago
}

// CheckoutStep is the ordinal checkout state
type CheckoutStep int

const (
	StepShipping CheckoutStep = 1
	StepContact  CheckoutStep = 2
	StepPayment  CheckoutStep = 3
	StepSummary  CheckoutStep = 4
)

func (s CheckoutStep) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepContact:
		return "contact"
	case StepPayment:
		return "payment"
	case StepSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// OrderStatus represents the payment status of a recorded order
type OrderStatus string

const (
	// PENDING - order recorded, awaiting payment confirmation
	OrderStatusPending OrderStatus = "PENDING"
	// PAID - gateway reported an approved payment
	OrderStatusPaid OrderStatus = "PAID"
	// REJECTED - gateway rejected the payment
	OrderStatusRejected OrderStatus = "REJECTED"
	// CANCELLED - payment cancelled before completion
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// REFUNDED - paid order refunded
	OrderStatusRefunded OrderStatus = "REFUNDED"
	// CHARGEBACK - paid order charged back
	OrderStatusChargeback OrderStatus = "CHARGEBACK"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusRejected,
		OrderStatusCancelled, OrderStatusRefunded, OrderStatusChargeback:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusPaid ||
			newStatus == OrderStatusRejected ||
			newStatus == OrderStatusCancelled
	case OrderStatusPaid:
		return newStatus == OrderStatusRefunded ||
			newStatus == OrderStatusChargeback
	case OrderStatusRejected:
		// Gateways retry rejected payments; a later approval is legitimate.
		return newStatus == OrderStatusPaid
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusChargeback:
		return false // terminal states
	default:
		return false
	}
}
