package service

import "github.com/Skotchmaster/bookstore/services/order/internal/repo"

// Services is the wired set of order-side services sharing one runtime.
type Services struct {
	Pricing       *PricingService
	Orders        *OrderService
	Library       *LibraryService
	Cart          *CartService
	Payments      *PaymentService
	BankTransfers *BankTransferService
}

func NewServices(r *repo.GormRepo, rt Runtime, currency string, proofs ProofStore) *Services {
	pricing := &PricingService{Runtime: rt, Repo: r, Currency: currency}
	library := &LibraryService{Runtime: rt, Repo: r}
	cart := &CartService{Runtime: rt, Repo: r}
	orders := &OrderService{Runtime: rt, Repo: r, Pricing: pricing, Library: library}
	payments := &PaymentService{Runtime: rt, Repo: r, Orders: orders, Library: library, Cart: cart}
	return &Services{
		Pricing:       pricing,
		Orders:        orders,
		Library:       library,
		Cart:          cart,
		Payments:      payments,
		BankTransfers: &BankTransferService{Runtime: rt, Repo: r, Payments: payments, Proofs: proofs},
	}
}
