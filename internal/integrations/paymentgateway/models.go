package paymentgateway

// RefundRequest запрос на возврат средств
type RefundRequest struct {
	// PaymentReference идентификатор исходного списания
	PaymentReference string `json:"paymentReference"`

	// Amount сумма возврата в минорных единицах валюты
	Amount int64 `json:"amount"`
}

// RefundResponse ответ шлюза на запрос возврата
type RefundResponse struct {
	// RefundReference идентификатор возврата на стороне шлюза
	RefundReference string `json:"refundReference"`

	// Status статус возврата (succeeded / pending / failed)
	Status string `json:"status"`
}
