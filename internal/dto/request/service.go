package request

import "io"

// ImageFile is an uploaded image taken from the multipart "image" field.
type ImageFile struct {
	File     io.Reader
	Filename string
}

type CreateServiceRequest struct {
	Title       string   `json:"title" validate:"required,min=2,max=150"`
	Category    string   `json:"category" validate:"required,max=60"`
	Description string   `json:"description" validate:"max=5000"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Lat         *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng         *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	ProviderID  string   `json:"provider_id,omitempty" validate:"omitempty,uuid"`
}

type UpdateServiceRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=2,max=150"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=60"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Lat         *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng         *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
}

type ListServicesRequest struct {
	Category string
	Lat      *float64
	Lng      *float64
	RadiusKm *float64
}
