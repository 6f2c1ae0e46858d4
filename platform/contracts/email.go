package contracts

import "time"

// EmailOutbound письмо в очереди отправки. Транспорт доставки вне этой системы.
type EmailOutbound struct {
	// MessageID детерминирован от (event_id, kind): повторная постановка дедуплицируется отправителем
	MessageID     string    `json:"MessageId" validate:"required"`
	To            string    `json:"To" validate:"required,email"`
	Subject       string    `json:"Subject" validate:"required"`
	Body          string    `json:"Body"`
	Kind          string    `json:"Kind"`
	SourceEventID string    `json:"SourceEventId,omitempty"`
	CreatedAt     time.Time `json:"CreatedAt"`
}

func (EmailOutbound) EventType() string      { return TypeEmailOutbound }
func (e EmailOutbound) PartitionKey() string { return e.To }
