package model

import "slices"

type SubscriptionStatus string

const (
	SubscriptionOnTrial   SubscriptionStatus = "ON_TRIAL"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionUnpaid    SubscriptionStatus = "UNPAID"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

var SubscriptionStatuses = []SubscriptionStatus{
	SubscriptionOnTrial, SubscriptionActive, SubscriptionPaused, SubscriptionPastDue,
	SubscriptionUnpaid, SubscriptionCancelled, SubscriptionExpired,
}

func (s SubscriptionStatus) Valid() bool { return slices.Contains(SubscriptionStatuses, s) }

// Entitled reports whether the subscriber should keep access to paid features.
func (s SubscriptionStatus) Entitled() bool {
	switch s {
	case SubscriptionOnTrial, SubscriptionActive, SubscriptionPastDue:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "CARD"
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentPaypal         PaymentMethod = "PAYPAL"
	PaymentVirtualAccount PaymentMethod = "VIRTUAL_ACCOUNT"
	PaymentOther          PaymentMethod = "OTHER"
)

var PaymentMethods = []PaymentMethod{
	PaymentCard, PaymentBankTransfer, PaymentPaypal, PaymentVirtualAccount, PaymentOther,
}

func (m PaymentMethod) Valid() bool { return slices.Contains(PaymentMethods, m) }

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

func (s PaymentStatus) Valid() bool { return slices.Contains(PaymentStatuses, s) }

type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "PENDING"
	RegistrationProcessing RegistrationStatus = "PROCESSING"
	RegistrationRegistered RegistrationStatus = "REGISTERED"
	RegistrationFailed     RegistrationStatus = "FAILED"
)

var RegistrationStatuses = []RegistrationStatus{
	RegistrationPending, RegistrationProcessing, RegistrationRegistered, RegistrationFailed,
}

func (s RegistrationStatus) Valid() bool { return slices.Contains(RegistrationStatuses, s) }

// Platform is a sales channel with its own commission rate.
type Platform string

const (
	PlatformRocket      Platform = "rocket"
	PlatformWing        Platform = "wing"
	PlatformConsignment Platform = "consignment"
)

var Platforms = []Platform{PlatformRocket, PlatformWing, PlatformConsignment}

func (p Platform) Valid() bool { return slices.Contains(Platforms, p) }

// Marketplace a registration targets.
const MarketplaceCoupang = "COUPANG"

// Activity log statuses.
const (
	ActivitySuccess = "success"
	ActivityFailed  = "failed"
	ActivityPending = "pending"
)
