package request

type CreateCityService struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Department  string  `json:"department" validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	Phone       *string `json:"phone" validate:"omitempty,max=40"`
	Email       *string `json:"email" validate:"omitempty,email"`
	OnlineURL   *string `json:"online_url" validate:"omitempty,url"`
	Hours       *string `json:"hours" validate:"omitempty,max=300"`
}

type UpdateCityService = CreateCityService
