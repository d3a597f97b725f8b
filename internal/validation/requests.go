package validation

type CreatePostRequest struct {
	Text  string `json:"text" validate:"omitempty,max=500"`
	Audio string `json:"audio" validate:"required,datauri"`
}

type ReplyRequest struct {
	Text string `json:"text" validate:"required,min=1,max=500"`
}

type PageQuery struct {
	Page  int64 `json:"page" validate:"gte=0,lte=1000000"`
	Limit int64 `json:"limit" validate:"gte=0,lte=100"`
}

type SignUpRequest struct {
	FullName   string  `json:"fullName" validate:"required,min=1,max=100"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=6,max=72"`
	Age        int     `json:"age" validate:"required,gte=1,lte=120"`
	Phone      string  `json:"phone" validate:"omitempty,min=7,max=20"`
	ProfilePic string  `json:"profilePic" validate:"omitempty,datauri"`
	Lat        float64 `json:"lat" validate:"gte=-90,lte=90"`
	Long       float64 `json:"long" validate:"gte=-180,lte=180"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	FullName   *string `json:"fullName" validate:"omitempty,min=1,max=100"`
	Username   *string `json:"username" validate:"omitempty,min=3,max=100"`
	Password   *string `json:"password" validate:"omitempty,min=6,max=72"`
	Bio        *string `json:"bio" validate:"omitempty,max=300"`
	Age        *int    `json:"age" validate:"omitempty,gte=1,lte=120"`
	ProfilePic *string `json:"profilePic" validate:"omitempty,datauri"`
}

type GoogleCallbackQuery struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required"`
}

type IDParam struct {
	ID string `json:"id" validate:"required,objectid"`
}
