package request

type UpdateProviderRequest struct {
	Bio string `json:"bio" validate:"max=2000"`
}
