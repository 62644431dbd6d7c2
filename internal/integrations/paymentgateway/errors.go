package paymentgateway

import "errors"

var (
	// ErrRefundRejected возвращается, когда шлюз окончательно отклонил возврат
	// (некорректное списание, возврат уже сделан по другому каналу и т.п.).
	// Повторять такой запрос бессмысленно.
	ErrRefundRejected = errors.New("paymentgateway client: refund rejected")

	// ErrUnavailable возвращается при транзиентных проблемах шлюза
	// (5xx, сетевые ошибки, timeout). Запрос можно повторить.
	ErrUnavailable = errors.New("paymentgateway client: gateway unavailable")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("paymentgateway client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе шлюза
	ErrInvalidResponse = errors.New("paymentgateway client: invalid response")
)
