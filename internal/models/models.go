package models

// Bank identifies one of the supported Chinese banks. The canonical values
// are the Chinese display names, exactly as the AI collaborator returns them.
type Bank string

const (
	BankICBC  Bank = "工商银行"
	BankCCB   Bank = "建设银行"
	BankABC   Bank = "农业银行"
	BankBOC   Bank = "中国银行"
	BankCMB   Bank = "招商银行"
	BankCOMM  Bank = "交通银行"
	BankPSBC  Bank = "邮储银行"
	BankCITIC Bank = "中信银行"
	BankCEB   Bank = "光大银行"
	BankHXB   Bank = "华夏银行"
	BankCGB   Bank = "广发银行"
	BankPAB   Bank = "平安银行"
	BankSPDB  Bank = "浦发银行"
	BankCIB   Bank = "兴业银行"
	BankCMBC  Bank = "民生银行"
	BankHFB   Bank = "恒丰银行"
	BankCZB   Bank = "浙商银行"
	BankCBHB  Bank = "渤海银行"
	BankBOB   Bank = "北京银行"
	BankSHB   Bank = "上海银行"
	BankJSB   Bank = "江苏银行"
	BankNBCB  Bank = "宁波银行"
	BankNJCB  Bank = "南京银行"
	BankHSBC  Bank = "汇丰银行"
)

// AllBanks lists every supported bank in display order.
var AllBanks = []Bank{
	BankICBC, BankCCB, BankABC, BankBOC, BankCMB, BankCOMM, BankPSBC,
	BankCITIC, BankCEB, BankHXB, BankCGB, BankPAB, BankSPDB, BankCIB,
	BankCMBC, BankHFB, BankCZB, BankCBHB, BankBOB, BankSHB, BankJSB,
	BankNBCB, BankNJCB, BankHSBC,
}

var knownBanks = func() map[Bank]bool {
	m := make(map[Bank]bool, len(AllBanks))
	for _, b := range AllBanks {
		m[b] = true
	}
	return m
}()

// KnownBank reports whether b is one of the supported banks.
func KnownBank(b Bank) bool {
	return knownBanks[b]
}

// OfferCategory classifies the kind of reward an offer grants.
type OfferCategory string

const (
	CategoryLottery  OfferCategory = "Lottery"
	CategoryPoints   OfferCategory = "Points"
	CategoryCashback OfferCategory = "Cashback"
	CategoryCoupon   OfferCategory = "Coupon"
)

// KnownCategory reports whether c is a valid offer category.
func KnownCategory(c OfferCategory) bool {
	switch c {
	case CategoryLottery, CategoryPoints, CategoryCashback, CategoryCoupon:
		return true
	}
	return false
}

// OfferStatus is the stored lifecycle state of an offer. Expiry by calendar
// date is a computed property and is never written back into this field.
type OfferStatus string

const (
	StatusActive  OfferStatus = "active"
	StatusExpired OfferStatus = "expired"
	StatusClaimed OfferStatus = "claimed"
)

// Offer represents one tracked bank promotion.
type Offer struct {
	ID             string        `json:"id"`
	Bank           Bank          `json:"bank"`
	Title          string        `json:"title"`
	SearchKeyword  string        `json:"searchKeyword,omitempty"`
	Description    string        `json:"description"`
	Category       OfferCategory `json:"category"`
	Status         OfferStatus   `json:"status"`
	ExpiryDate     string        `json:"expiryDate"` // YYYY-MM-DD
	EstimatedValue float64       `json:"estimatedValue"`
	Steps          []string      `json:"steps"`
}

// OfferDraft is the shape the AI collaborator returns: an offer-like record
// that has not yet been assigned an id, status, or description.
type OfferDraft struct {
	Bank           Bank          `json:"bank"`
	Title          string        `json:"title"`
	Category       OfferCategory `json:"category"`
	Steps          []string      `json:"steps"`
	ExpiryDate     string        `json:"expiryDate"`
	EstimatedValue float64       `json:"estimatedValue"`
}

// UserCard represents a bank card the user owns.
type UserCard struct {
	ID       string `json:"id"`
	Bank     Bank   `json:"bank"`
	LastFour string `json:"lastFour"`
	Nickname string `json:"nickname"`
}

// AddCardRequest is the request body for registering a card.
type AddCardRequest struct {
	Bank     Bank   `json:"bank"`
	LastFour string `json:"lastFour"`
	Nickname string `json:"nickname,omitempty"`
}

// AnalyzeRequest carries a promotion screenshot for AI extraction.
type AnalyzeRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// SyncResponse reports the outcome of a sync-and-merge run.
type SyncResponse struct {
	Added int `json:"added"`
	Total int `json:"total"`
}

// DashboardResponse is the summary view: pending value on owned cards,
// completed claims, and the short recommended list.
type DashboardResponse struct {
	MatchedValue float64 `json:"matchedValue"`
	ClaimedCount int     `json:"claimedCount"`
	Recommended  []Offer `json:"recommended"`
}

// StrategyResponse wraps the collaborator's free-text optimization advice.
type StrategyResponse struct {
	Strategy string `json:"strategy"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
