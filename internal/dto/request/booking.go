package request

type CreateBookingRequest struct {
	ServiceID string `json:"service_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Address   string `json:"address" validate:"required,min=3,max=500"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RateBookingRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=2000"`
}
