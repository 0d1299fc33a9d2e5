package dto

// Денежные суммы и проценты принимаются строками, чтобы не терять точность на float.

// CreateOrderRequest - оформление заказа на услугу продавца.
type CreateOrderRequest struct {
	ServiceID    string  `json:"service_id" binding:"required"`
	Quantity     int     `json:"quantity" binding:"required"`
	Requirements string  `json:"requirements"`
	TargetURL    *string `json:"target_url"`
}

// DeclineOrderRequest - отказ продавца от заказа.
type DeclineOrderRequest struct {
	Reason string `json:"reason"`
}

// DeliverOrderRequest - сдача работы с подтверждением.
type DeliverOrderRequest struct {
	ProofURL    string   `json:"proof_url" binding:"required"`
	Description string   `json:"description"`
	Screenshots []string `json:"screenshots"`
}

// RevisionRequest - запрос покупателя на доработку.
type RevisionRequest struct {
	Reason       string `json:"reason" binding:"required"`
	Instructions string `json:"instructions"`
}

// OpenDisputeRequest - заявление стороны заказа.
type OpenDisputeRequest struct {
	OrderID     string   `json:"order_id" binding:"required"`
	DisputeType string   `json:"dispute_type" binding:"required"`
	Reason      string   `json:"reason" binding:"required"`
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
}

// DisputeResponseRequest - ответ ответчика по спору.
type DisputeResponseRequest struct {
	Response string   `json:"response" binding:"required"`
	Evidence []string `json:"evidence"`
}

// ResolveDisputeRequest - решение медиатора.
type ResolveDisputeRequest struct {
	Resolution       string  `json:"resolution" binding:"required"`
	RefundPercentage *string `json:"refund_percentage"`
	Notes            string  `json:"notes"`
}

// AppealRequest - апелляция на решение по спору.
type AppealRequest struct {
	Reason   string   `json:"reason" binding:"required"`
	Evidence []string `json:"evidence"`
}

// TopUpRequest - пополнение кредитного баланса.
type TopUpRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// WithdrawRequest - заявка продавца на вывод.
type WithdrawRequest struct {
	Amount        string  `json:"amount" binding:"required"`
	PayoutMethod  string  `json:"payout_method" binding:"required"`
	PayoutDetails *string `json:"payout_details"`
}
