package models

// RequestStatus — статус аудио-заявки. Закрытое множество значений,
// любые переходы проверяются по таблице requestTransitions.
type RequestStatus string

const (
	RequestStatusPending           RequestStatus = "pending"
	RequestStatusPaymentAuthorized RequestStatus = "payment_authorized"
	RequestStatusAccepted          RequestStatus = "accepted"
	RequestStatusInProgress        RequestStatus = "in_progress"
	RequestStatusReadyForReview    RequestStatus = "ready_for_review"
	RequestStatusApproved          RequestStatus = "approved"
	RequestStatusRejected          RequestStatus = "rejected"
	RequestStatusDisputed          RequestStatus = "disputed"
	RequestStatusCompleted         RequestStatus = "completed"
	RequestStatusCancelled         RequestStatus = "cancelled"
)

// DisputeStatus — статус спора внутри заявки.
type DisputeStatus string

const (
	DisputeStatusPending     DisputeStatus = "pending"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusResolved    DisputeStatus = "resolved"
	DisputeStatusRejected    DisputeStatus = "rejected"
)

// PaymentStatus — статус оплаты заявки.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethod — платёжный шлюз, выбранный при создании заявки.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodPayPal PaymentMethod = "paypal"
)

// PricingType — тип тарифа.
const (
	PricingTypePersonal = "personal"
	PricingTypeBusiness = "business"
)

// Роли пользователей
const (
	RoleRequester = "requester"
	RoleCreator   = "creator"
	RoleAdmin     = "admin"
)

// MaxRevisions — максимальное число доработок по одной заявке.
const MaxRevisions = 2

// ValidRequestStatuses список валидных статусов заявок
var ValidRequestStatuses = map[RequestStatus]struct{}{
	RequestStatusPending:           {},
	RequestStatusPaymentAuthorized: {},
	RequestStatusAccepted:          {},
	RequestStatusInProgress:        {},
	RequestStatusReadyForReview:    {},
	RequestStatusApproved:          {},
	RequestStatusRejected:          {},
	RequestStatusDisputed:          {},
	RequestStatusCompleted:         {},
	RequestStatusCancelled:         {},
}

// ValidPaymentMethods список поддерживаемых платёжных методов
var ValidPaymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodStripe: {},
	PaymentMethodPayPal: {},
}

// requestTransitions описывает допустимые переходы статусов.
// Деньги двигаются только на переходах approved -> completed и
// disputed -> completed; отмена допустима, пока средства не списаны.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:           {RequestStatusPaymentAuthorized, RequestStatusCancelled},
	RequestStatusPaymentAuthorized: {RequestStatusAccepted, RequestStatusCancelled},
	RequestStatusAccepted:          {RequestStatusInProgress, RequestStatusCancelled},
	RequestStatusInProgress:        {RequestStatusReadyForReview, RequestStatusCancelled},
	RequestStatusReadyForReview:    {RequestStatusApproved, RequestStatusRejected, RequestStatusDisputed, RequestStatusCancelled},
	RequestStatusApproved:          {RequestStatusCompleted},
	RequestStatusRejected:          {RequestStatusInProgress, RequestStatusCancelled},
	RequestStatusDisputed:          {RequestStatusCompleted},
	RequestStatusCompleted:         {},
	RequestStatusCancelled:         {},
}

// CanTransitionTo проверяет переход по таблице.
func (s RequestStatus) CanTransitionTo(to RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что заявка достигла конечного состояния.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusCancelled
}

// IsPreCapture сообщает, что средства ещё не списаны (авторизация
// может быть отменена на стороне шлюза).
func (s RequestStatus) IsPreCapture() bool {
	switch s {
	case RequestStatusPending, RequestStatusPaymentAuthorized, RequestStatusAccepted,
		RequestStatusInProgress, RequestStatusReadyForReview, RequestStatusRejected,
		RequestStatusDisputed:
		return true
	}
	return false
}
