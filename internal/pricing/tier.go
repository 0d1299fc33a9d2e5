package pricing

// SellerStats - показатели продавца для определения уровня.
type SellerStats struct {
	TotalOrders   int
	AverageRating float64
	DisputeRate   float64
}

// TierFor определяет уровень продавца по количеству заказов, рейтингу и доле споров.
// Продавец, не прошедший порог рейтинга своей группы, остаётся на bronze.
func TierFor(s SellerStats) Tier {
	switch {
	case s.TotalOrders < 11:
		return TierNew
	case s.TotalOrders < 51 && s.AverageRating >= 4.0:
		return TierBronze
	case s.TotalOrders < 201 && s.AverageRating >= 4.3:
		return TierSilver
	case s.TotalOrders < 501 && s.AverageRating >= 4.5 && s.DisputeRate < 0.05:
		return TierGold
	case s.TotalOrders >= 501 && s.AverageRating >= 4.7 && s.DisputeRate < 0.02:
		return TierPlatinum
	default:
		return TierBronze
	}
}
