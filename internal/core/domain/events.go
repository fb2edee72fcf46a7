package domain

// SaleCreated is published when a listing is posted. Registry identifies
// which asset registry the sale settles against.
type SaleCreated struct {
	Seller   string
	AssetID  uint64
	SaleID   uint64
	Registry string
	Kind     AssetKind
}

// Purchase is published after a settled purchase.
type Purchase struct {
	Buyer    string
	AssetID  uint64
	SaleID   uint64
	Seller   string
	Registry string
	Kind     AssetKind
}
