package payment

import "strings"

// Category identifies how a payment's pay_type string is settled.
type Category int

const (
    // CategoryUnknown leaves the payment in waiting for manual review.
    CategoryUnknown Category = iota
    // CategoryCard confirms immediately and settles through the card
    // terminal callback.
    CategoryCard
    // CategoryDonationCard is a donation charged to a card.
    CategoryDonationCard
    // CategoryDonationDirect is a donation by transfer or cash.
    CategoryDonationDirect
    // CategoryDirect is a plain transfer or cash payment.
    CategoryDirect
    // CategoryPoolDepartment debits a named department pool.
    CategoryPoolDepartment
    // CategoryPoolPersonal debits the payer's personal pool.
    CategoryPoolPersonal
    // CategoryEtc covers the bookkeeping-only types (etc, notion).
    CategoryEtc
)

// dispatch maps pay_type prefixes to categories.  Order matters: the
// first matching prefix wins, and several categories share a prefix
// (donation.card vs donation.transfer), so longer entries come first
// within a family.
var dispatch = []struct {
    prefix   string
    category Category
}{
    {"donation.card", CategoryDonationCard},
    {"donation.transfer", CategoryDonationDirect},
    {"donation.cash", CategoryDonationDirect},
    {"card", CategoryCard},
    {"transfer", CategoryDirect},
    {"cash", CategoryDirect},
    {"saved_money.d", CategoryPoolDepartment},
    {"saved_money.p", CategoryPoolPersonal},
    {"etc", CategoryEtc},
    {"notion", CategoryEtc},
}

// Classify resolves the settlement category of a pay_type string.
func Classify(payType string) Category {
    for _, d := range dispatch {
        if strings.HasPrefix(payType, d.prefix) {
            return d.category
        }
    }
    return CategoryUnknown
}

// DepartmentOf extracts the department name a pool-affecting pay_type
// carries, or "" when the type targets the payer's personal pool.
//
//	donation.card.downtown   -> downtown
//	donation.transfer.uptown -> uptown
//	saved_money.d.downtown   -> downtown
//	donation.card            -> ""
func DepartmentOf(payType string) string {
    for _, prefix := range []string{
        "donation.card",
        "donation.transfer",
        "donation.cash",
        "saved_money.d",
    } {
        if strings.HasPrefix(payType, prefix) {
            return strings.TrimPrefix(strings.TrimPrefix(payType, prefix), ".")
        }
    }
    return ""
}

// IsRefund reports whether the pay_type marks a refund row rather than a
// charge.
func IsRefund(payType string) bool {
    return strings.Contains(payType, ".refund")
}

// IsCardRefund reports whether a refund settles through the card
// terminal.
func IsCardRefund(payType string) bool {
    return strings.Contains(payType, "card.refund")
}
